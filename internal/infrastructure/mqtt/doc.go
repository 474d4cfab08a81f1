// Package mqtt wraps paho.mqtt.golang for BusPro Core.
//
// The client tracks subscriptions so they survive reconnects, binds a
// retained Last Will on the availability topic, and exposes an OnConnect
// callback that fires on every (re)connect. Discovery republish and command
// resubscription hang off that callback so brokers without retained-message
// persistence still converge after a restart.
package mqtt
