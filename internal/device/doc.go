// Package device holds the typed registry of configured bus devices.
//
// Records are keyed by bus address within each kind; adds and address edits
// collide with ErrConflict. Cover groups carry a stable UUID assigned at
// creation so MQTT topics and platform entities survive renames.
//
// The registry is pure in-memory state. Persistence, discovery republish,
// and realtime broadcasts are driven by the change listener.
package device
