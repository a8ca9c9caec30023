// Package protocol owns the device wire contract as Go types.
//
// Ownership boundary:
// - envelope unions exchanged with the radio (ToRadio/FromRadio)
// - mesh packet and payload shapes
// - codec interface implemented by internal/protocol/wire
package protocol
