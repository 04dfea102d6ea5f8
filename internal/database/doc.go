// Package database provides SQLite-based storage for PersonaShield.
//
// The DB stores:
//   - key-value JSON documents: the analysis history, the registered users
//     and the signed-in user (it satisfies store.KV)
//   - an upload log with one row per upload attempt
//
// SQLite (via modernc.org/sqlite) keeps everything in a single file under
// the data directory and needs no CGO.
package database
