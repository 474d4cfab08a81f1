package buspro

import "errors"

// Sentinel errors for gateway operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDecode indicates a UDP frame could not be decoded as a BusPro telegram.
	ErrDecode = errors.New("buspro: frame decode failed")

	// ErrInvalidAddress indicates a malformed bus address.
	ErrInvalidAddress = errors.New("buspro: invalid address")

	// ErrTransportNotReady indicates the UDP socket is not bound yet.
	// Commands issued before Start() (or after a failed bind) fail with this.
	ErrTransportNotReady = errors.New("buspro: UDP transport not ready")

	// ErrGatewayStopped indicates the gateway has been shut down.
	ErrGatewayStopped = errors.New("buspro: gateway stopped")
)
