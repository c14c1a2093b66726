// Package sensor holds the Aeris domain model: registered gas sensors
// and the readings they report.
//
// # Data Model
//
// A Sensor is a device that announced itself on the register channel.
// A SensorEntry is a single gas concentration reading. Entries carry
// their own sensor_id but are not foreign-keyed to the sensor table;
// a reading from a sensor that never registered is stored anyway and
// surfaces once the sensor registers.
//
// # Service
//
// The Service interface abstracts persistence so the broker listener
// and HTTP layer can be tested without a database. Two implementations
// exist: Store (SQLite, production) and Memory (tests).
//
// # Identifiers
//
// Sensors identify themselves with a UUID they generate. Entry ids are
// UUIDv7, so lexical order matches insertion order within a run.
package sensor
