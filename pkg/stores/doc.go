// Package stores persists compile history in SQLite.
//
// The store uses the pure-Go modernc.org/sqlite driver with WAL mode and
// applies its schema with golang-migrate from embedded migrations. Each run
// records the outcome of one compile together with every nibbler finding.
package stores
