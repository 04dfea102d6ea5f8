// Package log provides slog loggers that keep credentials and resume PII
// out of PersonaShield's output.
//
// A resume analysis is a list of its owner's personal data, so even verbose
// logs must never carry it verbatim. SecureHandler applies three rules:
//   - keys naming a credential (password, authorization, token) become
//     MaskValue
//   - keys naming an identity field (email, phone, author, gps) become
//     PIIMask
//   - emails, phone numbers and LinkedIn profile URLs inside messages,
//     strings and errors become PIIMask, and long strings are cut
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("upload finished",
//	    "file", "resume.pdf",
//	    "explanation", result.Explanation(), // emails become "[pii]"
//	)
package log
