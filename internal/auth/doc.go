// Package auth persists the REST API credential used by the polling
// channel. Tokens are stored in SQLite and cached in memory; every
// read-modify-write sequence is serialized so concurrent savers and
// readers cannot interleave a stale credential back into the database.
//
// The package inspects JWT expiry claims to decide when a token is
// stale, but never verifies signatures and never authenticates anything
// itself. Obtaining and refreshing tokens is an out-of-band concern.
package auth
