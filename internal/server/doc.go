// Package server exposes the analysis store over HTTP for the web
// dashboard.
//
// The REST API serves the current analysis, the history and the per-page
// view models; uploads go through the same ingestion pipeline as the CLI.
// A WebSocket endpoint pushes a message whenever the current analysis
// changes, so every open dashboard follows the latest upload.
package server
