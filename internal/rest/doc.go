// Package rest implements the polling transport channel. A Client
// fetches the account device list from the vendor REST API, normalizes
// each entry into device metadata plus a structured state snapshot, and
// a Poller feeds those snapshots downstream on a fixed interval.
//
// Polling is the slow path. It exists to discover devices and to catch
// state the push channel missed, not to carry commands.
package rest
