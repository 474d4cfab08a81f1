// Package buspro implements the HDL BusPro gateway for BusPro Core.
//
// This package provides connectivity to a BusPro installation via its UDP
// gateway. It encodes and decodes bus telegrams, tracks the gateway peer
// with a NAT guard, paces all outbound traffic through a single-writer
// scheduler, and runs per-device state machines for covers, lights, and
// sensors.
//
// # Architecture
//
//	┌─────────────────┐           ┌─────────────────┐
//	│  BusPro Core    │ callbacks │    Gateway      │    UDP
//	│  (mqtt/ws/api)  │◄─────────►│   (this pkg)    │◄────────► HDL gateway
//	└─────────────────┘           └─────────────────┘
//
// # Key Responsibilities
//
//   - Encode/decode UDP-wrapped BusPro telegrams (CRC-16/CCITT)
//   - Track the gateway peer; never adopt NATed source addresses
//   - Pace and coalesce outbound commands (STOP has priority)
//   - Simulate cover positions from calibrated travel times
//   - Decode sensor payloads in their observed firmware variants
//   - Capture unknown opcodes in a bounded sniffer ring
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
// The UDP socket is written only by the scheduler dispatcher and read only
// by the receive loop.
package buspro
