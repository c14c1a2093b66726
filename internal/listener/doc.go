// Package listener consumes sensor traffic from the MQTT broker and
// feeds it into persistence and the live broadcast bus.
//
// Two channels are consumed: registrations (iot/sensor/register, QoS 1)
// and gas readings (iot/sensor/gas, QoS 0). Payloads are pipe-delimited
// "<uuid>|<value>" pairs; anything malformed is logged and dropped, the
// loop never aborts.
//
// Each accepted message is processed on its own goroutine behind a
// weighted semaphore, so a slow database bounds memory instead of
// growing an unbounded backlog. Close drains in-flight work.
package listener
