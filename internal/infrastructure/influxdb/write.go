package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading mirrors a single gas reading to InfluxDB.
//
// This is the primary method for recording sensor telemetry. The write
// is non-blocking; points are batched and sent asynchronously, and a
// dropped point is acceptable since SQLite holds the canonical copy.
//
// Parameters:
//   - sensorID: UUID of the reporting sensor
//   - value: Gas concentration reading
//   - timestamp: When the reading was recorded
//
// Example:
//
//	client.WriteReading("0198d4a2-7b3e-7cc1-9f11-2a4be8d1c001", 412.5, time.Now())
func (c *Client) WriteReading(sensorID string, value float64, timestamp time.Time) {
	c.WritePointWithTime(
		"gas_readings",
		map[string]string{
			"sensor_id": sensorID,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)
}

// WritePointWithTime writes a custom point with an explicit timestamp.
//
// Use this for measurements that don't fit WriteReading.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
