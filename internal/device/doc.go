// Package device gives each physical device a runtime container over its
// capability states and persists discovery metadata between runs.
//
// A Device holds named states (power, brightness, humidity, operating
// mode) behind a common State interface, fans inbound reports out to all
// of them, and collects the command payloads a write produces. Factories
// keyed by model prefix decide which states a device family gets.
//
// The Registry owns the live devices and is the only concurrency-safe
// type in the package; the devices it hands out belong on the engine's
// event loop. Metadata flows Registry -> Repository (SQLite) so the
// registry can be rebuilt at startup without a discovery round trip.
package device
