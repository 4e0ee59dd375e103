package modem

import (
	"context"
	"io"

	"alusys.io/edge/simhttp/at"
)

// framer turns the transport's raw byte stream into CRLF-delimited lines
// and, on demand, byte-count-bounded raw reads that bypass line splitting.
//
// A single pump goroutine owns all transport reads and hands chunks over a
// channel, so every consume is a bounded select and a line split across two
// physical reads is reassembled before being yielded. No line is yielded
// twice or dropped.
type framer struct {
	chunks chan []byte
	errs   chan error
	done   chan struct{}

	// buf holds bytes received but not yet consumed as a line or raw read.
	buf []byte
}

func newFramer(r io.Reader) *framer {
	f := &framer{
		chunks: make(chan []byte, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go f.pump(r)
	return f
}

// pump is the only goroutine that reads the transport. It exits when the
// transport fails (EOF on close) or the framer is stopped.
func (f *framer) pump(r io.Reader) {
	for {
		p := make([]byte, 512)
		n, err := r.Read(p)
		if n > 0 {
			select {
			case f.chunks <- p[:n]:
			case <-f.done:
				return
			}
		}
		if err != nil {
			select {
			case f.errs <- err:
			case <-f.done:
			}
			return
		}
	}
}

// stop releases the pump goroutine. The transport itself is closed by the
// owner.
func (f *framer) stop() {
	close(f.done)
}

// line yields the next complete line. Partial trailing data stays buffered
// until its terminator arrives. The data prompt is yielded as its own token.
func (f *framer) line(ctx context.Context) (string, error) {
	for {
		if advance, token, _ := at.Splitter(f.buf, false); advance > 0 {
			line := string(token)
			f.buf = f.buf[advance:]
			return line, nil
		}
		if err := f.fill(ctx); err != nil {
			return "", err
		}
	}
}

// raw yields exactly n bytes, bypassing line splitting. Bytes already
// buffered by line framing are consumed first.
func (f *framer) raw(ctx context.Context, n int) ([]byte, error) {
	for len(f.buf) < n {
		if err := f.fill(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]byte, n)
	copy(out, f.buf)
	f.buf = f.buf[n:]
	return out, nil
}

// fill blocks for the next chunk from the pump, bounded by ctx.
func (f *framer) fill(ctx context.Context) error {
	select {
	case chunk, ok := <-f.chunks:
		if !ok {
			return io.EOF
		}
		f.buf = append(f.buf, chunk...)
		return nil
	case err := <-f.errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flush discards buffered bytes and any chunks the pump has already queued.
// It guards a new transaction against a prior transaction's late bytes.
func (f *framer) flush() {
	f.buf = nil
	for {
		select {
		case _, ok := <-f.chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
