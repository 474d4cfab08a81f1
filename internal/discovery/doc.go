// Package discovery builds MQTT Discovery payloads for the home-automation
// platform.
//
// Entities are grouped under logical platform devices by user category;
// object IDs derive from bus addresses (or the stable group UUID), never
// from names, so renames keep entities stable. Each cover additionally
// publishes a "no-%" clone with assumed state and raw command topics for
// installations where time-based positions drift.
package discovery
