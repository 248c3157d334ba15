// Package iot coordinates the cloud-channel command lifecycle.
//
// The coordinator sits between device states and the MQTT transport. On the
// way out it wraps queued command payloads in the service's JSON envelope
// (topic, accountTopic, transaction, commandId) and tracks each published
// command against a TTL. On the way in it flattens arbitrarily nested
// msg/data envelopes into the flat report shape the state package parses,
// drops acknowledged commands from tracking, and forwards the normalized
// report to a registered callback.
//
// A single command moves through a fixed lifecycle:
//
//	published -> acknowledged (matching report observed)
//	          -> expired      (deadline passed, removed by the sweep)
//
// A late report for an already-expired command finds no tracked entry and
// is ignored. The expiry sweep is the only path that removes a command
// which never received an acknowledgement, so the pending set cannot grow
// without bound.
//
// Concurrency model: one goroutine owns all tracking state. Caller methods
// and broker callbacks post onto its loop; the expiry timer is re-armed to
// the soonest pending deadline after every change to the pending set.
package iot
