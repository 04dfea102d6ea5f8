// Package report renders an analysis for the terminal, for tools and for
// sharing.
//
// A Report bundles the dashboard snapshot of one analysis (every page of
// internal/view) with the optional pre-flight inspection of the uploaded
// document. Writers render it:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter / FullJSONWriter: JSON, optionally wrapped with the version
//   - MarkdownWriter: GitHub Flavored Markdown with tables, alerts and
//     mermaid pie charts
//
// Writers implement the Writer interface, so they can be composed with
// MultiWriter.
package report
