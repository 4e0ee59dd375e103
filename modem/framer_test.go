package modem

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestFramerLineReassembly(t *testing.T) {
	transport := NewTestTransport()
	defer transport.Close()

	f := newFramer(transport)
	defer f.stop()

	// A line split across two physical reads is reassembled before being
	// yielded.
	transport.SendData("+HTTPACTION: 0,2")
	transport.SendData("00,42\r\nOK\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	line, err := f.line(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "+HTTPACTION: 0,200,42" {
		t.Errorf("expected reassembled line, got %q", line)
	}

	line, err = f.line(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "OK" {
		t.Errorf("expected %q, got %q", "OK", line)
	}
}

func TestFramerRawRead(t *testing.T) {
	transport := NewTestTransport()
	defer transport.Close()

	f := newFramer(transport)
	defer f.stop()

	payload := "<html>hello</html>"
	transport.SendData("+HTTPREAD: 18\r\n" + payload + "\r\nOK\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	line, err := f.line(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "+HTTPREAD: 18" {
		t.Fatalf("expected header line, got %q", line)
	}

	// The raw read must return exactly the requested byte count, no more,
	// no fewer, bypassing line splitting.
	body, err := f.raw(ctx, len(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(body, []byte(payload)) {
		t.Errorf("expected %q, got %q", payload, body)
	}

	// Line mode resumes after the raw read.
	line, err = f.line(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "" {
		t.Errorf("expected empty line after payload, got %q", line)
	}
	line, err = f.line(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "OK" {
		t.Errorf("expected %q, got %q", "OK", line)
	}
}

func TestFramerDeadline(t *testing.T) {
	transport := NewTestTransport()
	defer transport.Close()

	f := newFramer(transport)
	defer f.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.line(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("line() did not return promptly after deadline: %v", elapsed)
	}
}

func TestFramerFlush(t *testing.T) {
	transport := NewTestTransport()
	defer transport.Close()

	f := newFramer(transport)
	defer f.stop()

	transport.SendData("stale partial line without terminator")

	// Let the pump move the chunk into the framer.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.line(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded while waiting on partial line, got %v", err)
	}

	f.flush()

	transport.SendData("OK\r\n")

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	line, err := f.line(ctx2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "OK" {
		t.Errorf("stale bytes survived flush: got %q", line)
	}
}
