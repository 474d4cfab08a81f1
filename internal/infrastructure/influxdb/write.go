package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading writes a numeric sensor reading to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - kind: Sensor kind ("temp", "humidity", "illuminance")
//   - address: Bus address of the sensor (e.g. "1.24.3")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteSensorReading("temp", "1.24.1", 21.5)
func (c *Client) WriteSensorReading(kind string, address string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"kind":    kind,
			"address": address,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCoverPosition writes a cover position sample.
//
// Used for tracking shutter travel over time.
//
// Parameters:
//   - address: Bus address of the cover
//   - position: Position percentage (0=closed, 100=open)
func (c *Client) WriteCoverPosition(address string, position float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"cover_position",
		map[string]string{
			"address": address,
		},
		map[string]interface{}{
			"position": position,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
