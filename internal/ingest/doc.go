// Package ingest moves resume PDFs from disk into the analysis store.
//
// Every document runs through the same steps:
//
//	inspect (local pre-flight checks) -> upload (analysis service)
//
// A document rejected by inspection is never uploaded. After the steps, the
// analysis is handed to the store with SetAnalysis and an entry is appended
// to the upload log. Batches upload concurrently with an errgroup limit, but
// analyses reach the store and the log in input order so that the history
// matches the order in which files were named.
package ingest
