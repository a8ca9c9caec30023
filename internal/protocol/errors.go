package protocol

import "errors"

var (
	ErrEmptyEnvelope     = errors.New("protocol: envelope has no payload variant")
	ErrAmbiguousEnvelope = errors.New("protocol: envelope has more than one payload variant")
)
