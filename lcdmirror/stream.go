// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdmirror

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
)

type client struct {
	refresh chan struct{}
	done    chan struct{}
}

func newClient() *client {
	return &client{refresh: make(chan struct{}, 1), done: make(chan struct{}, 1)}
}

func (c *client) wake() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

func (c *client) stop() {
	select {
	case c.done <- struct{}{}:
	default:
	}
}

// frame returns the current buffer encoded as f. The result must not be
// modified.
func (m *Mirror) frame(f Format) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.encoded[f]; ok {
		return b, nil
	}
	b, err := encode(f, m.buffer, m.quality)
	if err != nil {
		return nil, err
	}
	m.encoded[f] = b
	return b, nil
}

// ServeHTTP streams the mirror to GET requests.
//
// Query parameters: "format" (png, jpeg) and "once" to get a single image
// instead of a stream.
func (m *Mirror) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	f := m.format
	if v := q.Get("format"); v != "" {
		var err error
		if f, err = ParseFormat(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if once, _ := strconv.ParseBool(q.Get("once")); once {
		b, err := m.frame(f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", f.mimeType())
		w.Header().Set("Content-Length", strconv.Itoa(len(b)))
		w.Header().Set("Cache-Control", "no-store")
		if r.Method == http.MethodGet {
			_, _ = w.Write(b)
		}
		return
	}

	boundary := newBoundary()
	w.Header().Set("Content-Type", mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": boundary}))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}

	c := newClient()
	m.mu.Lock()
	m.clients[c] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.clients, c)
		m.mu.Unlock()
	}()

	flusher, _ := w.(http.Flusher)
	first := true
	for {
		b, err := m.frame(f)
		if err != nil {
			return
		}
		// Write errors mean the client went away.
		if err := writePart(w, boundary, f.mimeType(), b, first); err != nil {
			return
		}
		first = false
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-c.refresh:
		case <-c.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writePart writes one part of a multipart stream, followed by the closing
// boundary line so the client can display it right away.
//
// mime/multipart.Writer only writes the boundary when the next part starts,
// which delays every frame by one.
func writePart(w io.Writer, boundary, mimeType string, body []byte, first bool) error {
	if first {
		if _, err := fmt.Fprintf(w, "--%s\r\n", boundary); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Content-Type: %s\r\nContent-Length: %d\r\n\r\n", mimeType, len(body)); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n--%s\r\n", boundary)
	return err
}

// newBoundary returns a random RFC 2046 boundary.
func newBoundary() string {
	var b [30]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
