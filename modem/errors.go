package modem

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Session that has not been successfully initialized.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyClosed is returned when an operation is attempted on a
	// Session that has been closed.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrActionTimeout is returned when no matching +HTTPACTION result
	// arrives before the action deadline.
	//
	// The transaction has failed, but teardown still runs; the modem's HTTP
	// service is never left initialized.
	ErrActionTimeout = errors.New("no HTTP action result before deadline")

	// ErrUploadTimeout is returned when the modem emits no acknowledgement
	// after the request body and its terminator were written.
	ErrUploadTimeout = errors.New("no acknowledgement after data upload")
)
