// Package pdfmeta inspects a resume PDF locally before it is uploaded.
//
// The inspector never sends anything over the network. It checks that the
// file is a PDF of acceptable size, computes a SHA3-256 fingerprint used to
// recognise repeated uploads, and reports metadata that identifies the
// author independently of the document text:
//   - the Info dictionary (Author, Creator, Producer, Title, dates)
//   - XMP packets (dc:creator, CreatorTool, document and instance IDs)
//   - EXIF tags of embedded JPEG photos (GPS, camera serial, artist)
//
// Each observation becomes a model.Finding whose severity comes from the
// model package's finding table.
package pdfmeta
