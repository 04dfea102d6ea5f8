// Package client uploads resume PDFs to the analysis service.
//
// One Upload is one multipart POST of the file under the form field "file"
// to {base}/api/v1/analyze/upload-pdf. A 2xx response carries the analysis
// as a JSON object and is decoded with the lenient model decoder. Every
// failure, whether transport, status or payload, is reported as an
// *UploadError that matches ErrAnalysisFailed and prints one generic
// message; the underlying cause is kept for debug logging only. Nothing is
// retried automatically.
package client
