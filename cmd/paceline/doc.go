// Package main hosts the Paceline CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into archive
// imports, API backfill runs, and read-only queries against the local
// database. It centralizes configuration resolution, process locking, and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
