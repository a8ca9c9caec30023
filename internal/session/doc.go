// Package session owns the device session lifecycle.
//
// Ownership boundary:
// - connection state machine (disconnected/connected/configuring/ready)
// - configuration handshake and its bounded reboot-recovery retries
// - inbound envelope dispatch into the directory and event bus
// - outbound packet construction and packet id allocation
package session
