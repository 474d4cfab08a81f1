// Package core wires the BusPro gateway, the device registry, the JSON
// store, the MQTT discovery/state bridge, and the realtime hub into one
// long-lived value constructed at startup.
//
// All state publication funnels through a single path that suppresses
// unchanged payloads, publishes retained MQTT, persists the last value,
// broadcasts the WebSocket delta, and records history.
package core
