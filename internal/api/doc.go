// Package api serves the HTTP admin surface and the realtime WebSocket hub.
//
// Admin routes honour the configured auth mode (none, token, basic) with a
// trusted-ingress bypass; the WebSocket endpoint uses the separate end-user
// auth. Connecting clients receive a full snapshot, then per-device deltas
// that are idempotent replacements.
package api
