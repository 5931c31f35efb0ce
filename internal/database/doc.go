// Package database provides SQLite-based storage for crawled page
// metadata. It is the durable record of what has been fetched: the
// crawler consults it at startup to rebuild its visited set and writes
// every successfully fetched page back into it.
package database
