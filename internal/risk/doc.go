// Package risk contains the pure calculators that turn raw analysis fields
// into display-ready values: severity classification and tallies, percentage
// normalization, risk-level bucketing, score-breakdown ranking and gauge
// geometry.
//
// Every function is deterministic and side-effect free. Absent input is
// reported with a false second return value so that callers can render an
// empty state; no function returns NaN.
package risk
