package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"alusys.io/edge/simhttp/at"
)

// Session drives the HTTP client built into a SIM7600-class cellular modem
// over a single AT command link.
//
// The modem is single-session: exactly one command is in flight on the
// transport at a time and no two HTTP transactions may run concurrently over
// the same link. Session enforces that boundary with an internal mutex, so
// one instance may be shared by multiple callers.
type Session struct {
	mu sync.Mutex

	// transport is the physical connection to the modem (serial, TCP, etc.)
	transport Transport
	// framer splits the transport's byte stream into lines and raw reads
	framer *framer
	// config contains the session configuration settings
	config Config
	// log receives command traces and best-effort diagnostics
	log *slog.Logger
	// closed indicates if the session has been shut down
	closed bool

	// pending holds +HTTPACTION results observed while collecting a
	// command response. A URC must never be consumed as a command result.
	pending []string
}

// Outcome is the result of one HTTP transaction.
type Outcome struct {
	// OK reports whether the action completed with HTTP status 200 and the
	// body, if any, was read in full.
	OK bool
	// StatusCode is the HTTP status from the +HTTPACTION result. Zero means
	// no result was observed before the deadline.
	StatusCode int
	// Body holds the response payload when the action succeeded with a
	// non-empty body.
	Body []byte
}

// New creates a new Session with the given configuration.
// It establishes the transport connection and runs the initial sanity
// sequence (wake-up, echo off, verbose errors).
//
// Returns an error if the transport connection or modem initialization
// fails.
func New(ctx context.Context, config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	s := &Session{
		transport: transport,
		framer:    newFramer(transport),
		config:    config,
		log:       config.Logger,
	}

	initCtx := ctx
	if config.InitTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, config.InitTimeout)
		defer cancel()
	}

	if err := s.init(initCtx); err != nil {
		s.framer.stop()
		transport.Close()
		return nil, fmt.Errorf("initialize modem: %w", err)
	}

	return s, nil
}

// init performs the initial setup sequence for the modem hardware.
func (s *Session) init(ctx context.Context) error {
	// Wake-up / sanity check
	if err := s.expectOK(ctx, at.CmdAt); err != nil {
		return fmt.Errorf("modem not responding: %w", err)
	}

	if err := s.expectOK(ctx, at.CmdEchoOff); err != nil {
		return fmt.Errorf("could not disable echo: %w", err)
	}

	if err := s.expectOK(ctx, at.CmdVerboseErrors); err != nil {
		return fmt.Errorf("could not enable verbose errors: %w", err)
	}

	return nil
}

// Close shuts down the session and releases the transport.
// After calling Close the session cannot be reused.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true

	s.framer.stop()
	return s.transport.Close()
}

// Get performs an HTTP GET for url.
func (s *Session) Get(ctx context.Context, url string) (Outcome, error) {
	return s.do(ctx, at.MethodGet, url, nil)
}

// Post performs an HTTP POST of body to url.
func (s *Session) Post(ctx context.Context, url string, body []byte) (Outcome, error) {
	return s.do(ctx, at.MethodPost, url, body)
}

// Put performs an HTTP PUT of body to url.
func (s *Session) Put(ctx context.Context, url string, body []byte) (Outcome, error) {
	return s.do(ctx, at.MethodPut, url, body)
}

// Command transmits one raw AT command line and returns the lines received
// within timeout. It is the pass-through surface for bring-up steps the
// caller drives itself.
//
// A timeout is an outcome, not a failure: the frame holds whatever lines
// arrived within the window, possibly none, and the error is nil. Only
// transport faults surface as errors.
func (s *Session) Command(ctx context.Context, cmd string, timeout time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command(ctx, cmd, timeout)
}

// Attach drives the PDP bring-up sequence: attach query, context
// definition, optional authentication, activation and address query.
//
// Every step is a best-effort diagnostic. An empty or error frame is
// logged and the flow continues, since re-running bring-up on an already
// attached context routinely reports errors that are harmless.
func (s *Session) Attach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := []string{
		at.CmdAttachQuery,
		fmt.Sprintf(at.CmdPDPContext, s.config.APN),
	}
	if s.config.AuthUser != "" {
		steps = append(steps, fmt.Sprintf(at.CmdPDPAuth, s.config.AuthUser, s.config.AuthPass))
	}
	steps = append(steps, at.CmdAttach, at.CmdActivate, at.CmdNetOpen, at.CmdPDPAddress)

	for _, cmd := range steps {
		frame, err := s.command(ctx, cmd, s.config.ATTimeout)
		if err != nil {
			return fmt.Errorf("bring-up %q: %w", cmd, err)
		}
		if len(frame) == 0 {
			s.log.Warn("no response to bring-up command", "cmd", cmd)
			continue
		}
		s.log.Info("bring-up", "cmd", cmd, "frame", frame)
	}
	return nil
}

// do runs one HTTP transaction through its full state machine:
// init, parameter configuration, optional upload, action trigger, result
// wait, body read, teardown. Teardown runs on every exit path so the
// modem's HTTP service is never left initialized.
func (s *Session) do(ctx context.Context, method at.Method, url string, body []byte) (outcome Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Outcome{}, ErrAlreadyClosed
	}

	// At most one action result is outstanding per invocation; anything
	// held over from an earlier transaction is stale.
	s.pending = nil

	ssl := s.config.UseSSL || strings.HasPrefix(url, "https://")

	// Terminate any session a prior run may have left initialized. The
	// modem reports an error when none exists; that is not fatal.
	frame, err := s.command(ctx, at.CmdHTTPTerm, s.config.ATTimeout)
	if err != nil {
		return Outcome{}, err
	}
	if !slices.Contains(frame, at.OK) {
		s.log.Debug("no prior HTTP session to terminate", "frame", frame)
	}

	defer s.teardown(context.WithoutCancel(ctx), ssl)

	if err := s.expectOK(ctx, at.CmdHTTPInit); err != nil {
		return Outcome{}, fmt.Errorf("HTTP init: %w", err)
	}
	if ssl {
		if err := s.expectOK(ctx, fmt.Sprintf(at.CmdHTTPSSL, 1)); err != nil {
			return Outcome{}, fmt.Errorf("enable SSL: %w", err)
		}
	}

	params := []string{
		fmt.Sprintf(at.CmdHTTPURL, url),
		at.CmdHTTPReadMode,
	}
	if body != nil {
		params = append(params, fmt.Sprintf(at.CmdHTTPContent, s.config.ContentType))
	}
	if s.config.UserData != "" {
		params = append(params, fmt.Sprintf(at.CmdHTTPUserData, s.config.UserData))
	}
	for _, cmd := range params {
		if err := s.expectOK(ctx, cmd); err != nil {
			return Outcome{}, fmt.Errorf("set parameter: %w", err)
		}
	}

	if body != nil {
		if err := s.upload(ctx, body); err != nil {
			return Outcome{}, err
		}
	}

	// Trigger the action. The line-based result here is only the command
	// acceptance; the real result arrives asynchronously.
	if _, err := s.command(ctx, fmt.Sprintf(at.CmdHTTPAction, method), s.config.ATTimeout); err != nil {
		return Outcome{}, fmt.Errorf("trigger action: %w", err)
	}

	action, err := s.awaitAction(ctx, method)
	if err != nil {
		return Outcome{}, err
	}

	outcome.StatusCode = action.StatusCode
	if action.StatusCode != 200 {
		s.log.Debug("HTTP action finished with non-success status",
			"method", method.String(), "status", action.StatusCode)
		return outcome, nil
	}

	outcome.OK = true
	if action.Length > 0 {
		payload, err := s.readBody(ctx, action.Length)
		if err != nil {
			outcome.OK = false
			return outcome, fmt.Errorf("read body: %w", err)
		}
		outcome.Body = payload
	}
	return outcome, nil
}

// teardown terminates the HTTP service. It runs exactly once per
// transaction, on success and on every failure path, and never fails the
// transaction itself.
func (s *Session) teardown(ctx context.Context, ssl bool) {
	if _, err := s.command(ctx, at.CmdHTTPTerm, s.config.ATTimeout); err != nil {
		s.log.Warn("HTTP teardown failed", "error", err)
		return
	}
	if ssl {
		if _, err := s.command(ctx, fmt.Sprintf(at.CmdHTTPSSL, 0), s.config.ATTimeout); err != nil {
			s.log.Warn("disable SSL failed", "error", err)
		}
	}
}

// command flushes stale input, writes one command line with a CRLF
// terminator and collects the response frame.
func (s *Session) command(ctx context.Context, cmd string, timeout time.Duration) ([]string, error) {
	if s.closed {
		return nil, ErrAlreadyClosed
	}

	s.framer.flush()

	wire := strings.TrimSpace(cmd) + at.CRLF
	if _, err := s.transport.Write([]byte(wire)); err != nil {
		return nil, fmt.Errorf("write command %q: %w", cmd, err)
	}

	frame, err := s.collect(ctx, timeout)
	s.log.Debug("AT exchange", "cmd", cmd, "frame", frame, "error", err)
	return frame, err
}

// collect gathers response lines until a terminal result code, the data
// prompt, or the end of the window. Whatever arrived within the window is
// the result; an empty frame is a timeout outcome, not an error.
func (s *Session) collect(ctx context.Context, timeout time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lines []string
	for {
		token, err := s.framer.line(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				return lines, nil
			case errors.Is(err, context.Canceled):
				return lines, err
			default:
				return lines, fmt.Errorf("read response: %w", err)
			}
		}

		// The prompt carries a trailing space, everything else is trimmed.
		line := token
		if line != at.Prompt {
			line = strings.TrimSpace(token)
		}
		if line == "" {
			continue
		}

		switch at.Classify(line) {
		case at.TypeURC:
			// Held for the matcher, never part of a command result.
			s.pending = append(s.pending, line)

		case at.TypeFinal, at.TypePrompt:
			lines = append(lines, line)
			return lines, nil

		default:
			lines = append(lines, line)
		}
	}
}

// expectOK executes a command and validates that the frame contains "OK".
func (s *Session) expectOK(ctx context.Context, cmd string) error {
	frame, err := s.command(ctx, cmd, s.config.ATTimeout)
	if err != nil {
		return err
	}
	if !slices.Contains(frame, at.OK) {
		return fmt.Errorf("unexpected response to %q: %q", cmd, frame)
	}
	return nil
}

// upload announces the data phase, then switches the link into raw
// pass-through: exactly len(body) payload bytes followed by the single
// terminator byte, then waits for the acknowledgement frame.
//
// The announcement frame (DOWNLOAD on this firmware) is collected
// best-effort. The modem accepts the payload within the declared window
// whether or not the announcement was observed, so an absent announcement
// is logged rather than treated as fatal.
func (s *Session) upload(ctx context.Context, body []byte) error {
	announce := fmt.Sprintf(at.CmdHTTPData, len(body), s.config.UploadTimeout.Milliseconds())
	frame, err := s.command(ctx, announce, s.config.ATTimeout)
	if err != nil {
		return fmt.Errorf("announce upload: %w", err)
	}
	if len(frame) == 0 {
		s.log.Warn("no response to upload announcement", "bytes", len(body))
	}

	if _, err := s.transport.Write(body); err != nil {
		return fmt.Errorf("write upload payload: %w", err)
	}
	if _, err := s.transport.Write([]byte(at.CtrlZ)); err != nil {
		return fmt.Errorf("write upload terminator: %w", err)
	}

	ack, err := s.collect(ctx, s.config.UploadTimeout)
	if err != nil {
		return fmt.Errorf("upload acknowledgement: %w", err)
	}
	if len(ack) == 0 {
		return ErrUploadTimeout
	}
	s.log.Debug("upload acknowledged", "bytes", len(body), "frame", ack)
	return nil
}

// awaitAction scans incoming lines for the +HTTPACTION result matching
// method. Malformed and unrelated lines are skipped; only the deadline ends
// the wait. A result observed earlier, interleaved with a command response,
// is consumed first.
func (s *Session) awaitAction(ctx context.Context, method at.Method) (at.Action, error) {
	for i, line := range s.pending {
		if action, ok := at.ParseAction(line); ok && action.Method == method {
			s.pending = slices.Delete(s.pending, i, i+1)
			return action, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ActionTimeout)
	defer cancel()

	for {
		token, err := s.framer.line(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				return at.Action{}, ErrActionTimeout
			case errors.Is(err, context.Canceled):
				// A deliberate cancel is not a URC timeout.
				return at.Action{}, err
			default:
				return at.Action{}, fmt.Errorf("read action result: %w", err)
			}
		}

		action, ok := at.ParseAction(strings.TrimSpace(token))
		if !ok || action.Method != method {
			continue
		}
		s.log.Debug("HTTP action result",
			"method", action.Method.String(), "status", action.StatusCode, "length", action.Length)
		return action, nil
	}
}

// readBody issues the body-read command for exactly n bytes. The body
// length from the action result is authoritative: the raw read requests
// that many bytes, never more, never fewer. The "+HTTPREAD:" header line
// the modem emits before the payload is consumed in line mode, the payload
// itself in raw mode.
func (s *Session) readBody(ctx context.Context, n int) ([]byte, error) {
	s.framer.flush()

	cmd := fmt.Sprintf(at.CmdHTTPRead, n)
	if _, err := s.transport.Write([]byte(cmd + at.CRLF)); err != nil {
		return nil, fmt.Errorf("write command %q: %w", cmd, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ATTimeout)
	defer cancel()

	for {
		token, err := s.framer.line(ctx)
		if err != nil {
			return nil, fmt.Errorf("body header: %w", err)
		}
		if strings.HasPrefix(strings.TrimSpace(token), at.HTTPReadHeader) {
			break
		}
	}

	payload, err := s.framer.raw(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("body payload: %w", err)
	}
	return payload, nil
}
