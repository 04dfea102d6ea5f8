// Package model defines the analysis payload returned by the PersonaShield
// analysis service and the small value types shared by the rest of the
// module.
//
// The main types are:
//   - AnalysisResult: one analysis run, decoded leniently and read only
//     through total accessors
//   - Entities and ReconItem: extracted personal data and its ordered recon
//     list
//   - Number and Factor: optional numeric fields and score contributions
//   - Severity and Finding: risk tiers and local pre-flight findings
//
// Every accessor treats an absent or wrong-typed field as "no data".
// Consumers never need nil checks on the nested sections of a payload.
package model
