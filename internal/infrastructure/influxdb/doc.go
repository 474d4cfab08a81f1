// Package influxdb provides an optional time-series sink for sensor telemetry.
//
// When enabled, numeric readings (temperature, humidity, illuminance) and
// cover position samples are written as batched, non-blocking points.
// Write failures surface through an async error callback.
package influxdb
