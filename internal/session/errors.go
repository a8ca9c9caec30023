package session

import "errors"

var (
	ErrNotConnected            = errors.New("session: not connected")
	ErrAlreadyConnected        = errors.New("session: already connected")
	ErrConfigureInFlight       = errors.New("session: configuration handshake already in progress")
	ErrDeviceNotReady          = errors.New("session: device not ready")
	ErrIncompleteConfiguration = errors.New("session: handshake completed with incomplete device snapshot")
	ErrNotConfigured           = errors.New("session: packet id allocator not seeded")
	ErrInvalidDestination      = errors.New("session: invalid destination")
)
