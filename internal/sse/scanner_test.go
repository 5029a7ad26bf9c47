package sse_test

import (
	"io"
	"strings"
	"testing"

	"github.com/axle-run/axle/internal/sse"
)

func TestScanner_ReadsDataOnlyEvents(t *testing.T) {
	raw := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\n"
	s := sse.NewScanner(strings.NewReader(raw))

	ev, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ev.Data) != `{"a":1}` {
		t.Errorf("got %q", ev.Data)
	}

	ev, err = s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ev.Data) != `{"a":2}` {
		t.Errorf("got %q", ev.Data)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestScanner_StopsOnDoneSentinel(t *testing.T) {
	raw := "data: {\"a\":1}\n\ndata: [DONE]\n\ndata: {\"a\":2}\n\n"
	s := sse.NewScanner(strings.NewReader(raw))

	ev, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ev.Data) != `{"a":1}` {
		t.Errorf("got %q", ev.Data)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after [DONE], got %v", err)
	}
}

func TestScanner_NamedEventField(t *testing.T) {
	raw := "event: message_start\ndata: {\"type\":\"start\"}\n\n"
	s := sse.NewScanner(strings.NewReader(raw))

	ev, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Event != "message_start" {
		t.Errorf("expected event name, got %q", ev.Event)
	}
	if string(ev.Data) != `{"type":"start"}` {
		t.Errorf("got %q", ev.Data)
	}
}

func TestScanner_MultilineDataIsJoinedWithNewline(t *testing.T) {
	raw := "data: line one\ndata: line two\n\n"
	s := sse.NewScanner(strings.NewReader(raw))

	ev, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ev.Data) != "line one\nline two" {
		t.Errorf("got %q", ev.Data)
	}
}

func TestScanner_EOFWithoutTrailingBlankLineStillYieldsLastEvent(t *testing.T) {
	raw := "data: {\"a\":1}"
	s := sse.NewScanner(strings.NewReader(raw))

	ev, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ev.Data) != `{"a":1}` {
		t.Errorf("got %q", ev.Data)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestScanner_EmptyStreamIsImmediateEOF(t *testing.T) {
	s := sse.NewScanner(strings.NewReader(""))
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
