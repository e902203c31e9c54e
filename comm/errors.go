package comm

import "errors"

var (
	// ErrNoDeviceSelected is returned by Controller.Start when the picker is
	// cancelled or has nothing to offer.
	ErrNoDeviceSelected = errors.New("no device selected")

	// ErrRequiredServiceUnavailable is returned by Controller.Start when the
	// picked device does not expose the requested service.
	ErrRequiredServiceUnavailable = errors.New("required service unavailable")

	// ErrStreamNotReady guards the exchange step against a missing stream.
	ErrStreamNotReady = errors.New("stream not ready")

	ErrStreamClosed = errors.New("stream closed")
	ErrInvalidState = errors.New("invalid controller state")
	ErrNotSupported = errors.New("operation not supported on this platform")
)
