// Package sse contains the framing helpers shared by both halves of the
// relay: the server-side upstream reader and the CLI stream consumer.
// It only deals with the `data: <payload>` line protocol; event payloads
// are opaque strings to this package.
package sse

import (
	"io"
	"strings"
)

const (
	// DataPrefix marks an SSE data line.
	DataPrefix = "data: "

	// Sentinel is the payload of the terminal event that signals normal
	// stream completion.
	Sentinel = "[DONE]"
)

// readChunkSize is the size of each raw read from the underlying stream.
const readChunkSize = 4096

// LineBuffer reassembles lines from a byte stream that is not aligned on
// line boundaries. The trailing fragment after the last newline is held
// back and prepended to the next chunk.
type LineBuffer struct {
	rest string
}

// Feed appends a chunk and returns all newly completed lines, without
// their trailing newline. Carriage returns are stripped.
func (b *LineBuffer) Feed(chunk []byte) []string {
	b.rest += string(chunk)

	var lines []string
	for {
		idx := strings.IndexByte(b.rest, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, strings.TrimSuffix(b.rest[:idx], "\r"))
		b.rest = b.rest[idx+1:]
	}
	return lines
}

// Flush returns the held-back fragment, if any, and resets the buffer.
// Callers use it to process a final line that arrived without a newline.
func (b *LineBuffer) Flush() string {
	rest := strings.TrimSuffix(b.rest, "\r")
	b.rest = ""
	return rest
}

// ParsePayload extracts the payload of a data line. Blank lines and SSE
// comment lines (": ..." keep-alives) report ok=false and are skipped by
// callers.
func ParsePayload(line string) (payload string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ":") {
		return "", false
	}
	if !strings.HasPrefix(trimmed, strings.TrimSpace(DataPrefix)) {
		return "", false
	}
	if !strings.HasPrefix(trimmed, DataPrefix) {
		// "data:" with no space after the colon
		return strings.TrimPrefix(trimmed, "data:"), true
	}
	return strings.TrimPrefix(trimmed, DataPrefix), true
}

// ScanData reads an SSE byte stream and invokes fn for the payload of
// every data line, including the Sentinel. Returning false from fn stops
// the scan. Line reassembly is boundary-invariant: the events produced do
// not depend on how the stream is split across reads. A final unterminated
// line is processed on EOF.
func ScanData(r io.Reader, fn func(payload string) bool) error {
	var lb LineBuffer
	buf := make([]byte, readChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range lb.Feed(buf[:n]) {
				if payload, ok := ParsePayload(line); ok {
					if !fn(payload) {
						return nil
					}
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				if payload, ok := ParsePayload(lb.Flush()); ok {
					fn(payload)
				}
				return nil
			}
			return err
		}
	}
}

// ContentFrame is the normalized downstream frame carrying a text delta.
type ContentFrame struct {
	Content string `json:"content"`
}

// ErrorFrame is the normalized downstream frame carrying a terminal error.
type ErrorFrame struct {
	Error string `json:"error"`
}
