package mqtt

import "fmt"

// Topic prefixes for the Aeris sensor fleet.
//
// Sensors publish under iot/sensor/{channel}; the ingest service itself
// publishes liveness under iot/ingest.
const (
	// TopicPrefixSensor is the base for all sensor-originated topics.
	TopicPrefixSensor = "iot/sensor"

	// TopicPrefixIngest is the base for ingest service topics.
	TopicPrefixIngest = "iot/ingest"
)

// Topics provides builders for Aeris MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.SensorGas()      // "iot/sensor/gas"
//	topics.SensorRegister() // "iot/sensor/register"
type Topics struct{}

// SensorRegister returns the topic sensors announce themselves on.
// Registrations are published at QoS 1 so a sensor's first message
// survives a flaky link.
//
// Topic: iot/sensor/register
func (Topics) SensorRegister() string {
	return fmt.Sprintf("%s/register", TopicPrefixSensor)
}

// SensorGas returns the topic carrying gas concentration readings.
// Readings arrive at QoS 0; a dropped sample is cheaper than a
// redelivery storm from thousands of devices.
//
// Topic: iot/sensor/gas
func (Topics) SensorGas() string {
	return fmt.Sprintf("%s/gas", TopicPrefixSensor)
}

// IngestStatus returns the retained status topic for the ingest service.
// The LWT is configured against this topic so downstream consumers can
// detect an unclean exit.
//
// Topic: iot/ingest/status
func (Topics) IngestStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixIngest)
}

// AllSensorChannels returns a pattern matching every sensor channel.
// Use with caution - this receives ALL sensor traffic.
//
// Pattern: iot/sensor/+
func (Topics) AllSensorChannels() string {
	return fmt.Sprintf("%s/+", TopicPrefixSensor)
}
