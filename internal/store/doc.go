// Package store persists BusPro Core state as a single JSON document.
//
// The document has three sections: devices (typed records), states (last
// published payload per device), and ui (group order, cover groups, hub
// links, persisted for the web surface but not interpreted here).
//
// A corrupt file is quarantined with a timestamp suffix and the system
// starts empty; writes are atomic via temp file + fsync + rename.
package store
