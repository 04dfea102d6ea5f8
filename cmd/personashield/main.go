// Package main provides the entry point for the PersonaShield CLI.
//
// PersonaShield uploads a resume PDF to the PersonaShield analysis service
// and shows how an attacker could exploit the personal data it exposes.
//
// Usage:
//
//	personashield signup <username>
//	personashield upload resume.pdf
//	personashield dashboard
//
// See --help for all available options.
package main

// main is the entry point for PersonaShield.
func main() {
	Execute()
}
