// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sse implements the minimal Server-Sent-Events line protocol used by
// the OpenAI and Anthropic adapters in llmprovider (the Ollama adapter reads
// newline-delimited JSON instead): "data: <payload>"
// lines separated by blank lines, terminated either by a "[DONE]" sentinel
// payload or by EOF.
package sse

import (
	"bufio"
	"bytes"
	"io"
)

// Event is one decoded SSE event. Event is empty (the provider doesn't use
// named events) for OpenAI-style streams; Anthropic sets it from
// "event: <name>" lines.
type Event struct {
	Event string
	Data  []byte
}

// Scanner reads SSE frames from r, one Data payload at a time.
type Scanner struct {
	r    *bufio.Reader
	done bool
}

// NewScanner wraps r as an SSE frame source.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next reads the next event. It returns io.EOF once the stream ends, either
// by a "data: [DONE]" sentinel or by the underlying reader reaching EOF.
func (s *Scanner) Next() (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}

	var ev Event
	for {
		line, err := s.r.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if err != nil {
				s.done = true
				if len(ev.Data) > 0 {
					return ev, nil
				}
				return Event{}, io.EOF
			}
			if ev.Data != nil {
				return ev, nil
			}
			continue

		case bytes.HasPrefix(line, []byte("event:")):
			ev.Event = string(bytes.TrimSpace(line[len("event:"):]))

		case bytes.HasPrefix(line, []byte("data:")):
			payload := bytes.TrimSpace(line[len("data:"):])
			if bytes.Equal(payload, []byte("[DONE]")) {
				s.done = true
				return Event{}, io.EOF
			}
			if ev.Data == nil {
				ev.Data = append([]byte(nil), payload...)
			} else {
				ev.Data = append(append(ev.Data, '\n'), payload...)
			}

		default:
			// comment line or unrecognized field; ignored per the SSE spec
		}

		if err != nil {
			s.done = true
			if ev.Data != nil {
				return ev, nil
			}
			return Event{}, io.EOF
		}
	}
}
