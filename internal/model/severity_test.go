package model

import "testing"

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "INFO"},
		{SeverityLow, "LOW"},
		{SeverityMedium, "MEDIUM"},
		{SeverityHigh, "HIGH"},
		{SeverityCritical, "CRITICAL"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestSeverityLabel tests the dashboard labels.
func TestSeverityLabel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "Informational"},
		{SeverityLow, "Low"},
		{SeverityMedium, "Moderate"},
		{SeverityHigh, "High"},
		{SeverityCritical, "Critical"},
		{Severity(-1), "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := tc.severity.Label(); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

// TestGetSeverity tests the GetSeverity function.
func TestGetSeverity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		findingType string
		expected    Severity
	}{
		{"exif_gps", SeverityCritical},
		{"exif_serial", SeverityHigh},
		{"exif_author", SeverityHigh},
		{"pdf_author", SeverityMedium},
		{"xmp_creator", SeverityMedium},
		{"pdf_producer", SeverityLow},
		{"xmp_document_id", SeverityLow},
		{"document_fingerprint", SeverityInfo},
		{"unknown_type", SeverityInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.findingType, func(t *testing.T) {
			t.Parallel()
			if got := GetSeverity(tc.findingType); got != tc.expected {
				t.Errorf("GetSeverity(%q) = %v, expected %v", tc.findingType, got, tc.expected)
			}
		})
	}
}

// TestNewFinding tests that findings carry their mapped metadata.
func TestNewFinding(t *testing.T) {
	t.Parallel()

	t.Run("known type", func(t *testing.T) {
		t.Parallel()

		f := NewFinding("pdf_author", "jdoe")
		if f.Severity != SeverityMedium {
			t.Errorf("expected SeverityMedium, got %v", f.Severity)
		}
		if f.Value != "jdoe" {
			t.Errorf("expected value jdoe, got %q", f.Value)
		}
		if f.Title == "" || f.Impact == "" || f.Recommendation == "" {
			t.Errorf("expected metadata to be filled, got %+v", f)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		f := NewFinding("something_else", "x")
		if f.Severity != SeverityInfo {
			t.Errorf("expected SeverityInfo, got %v", f.Severity)
		}
		if f.Title != "something_else" {
			t.Errorf("expected title to fall back to the type, got %q", f.Title)
		}
	})
}

// TestFindingInfoMappingCompleteness checks that every mapped type is described.
func TestFindingInfoMappingCompleteness(t *testing.T) {
	t.Parallel()

	for findingType, info := range findingInfoMapping {
		if info.Title == "" {
			t.Errorf("finding type %q has no title", findingType)
		}
		if info.Impact == "" {
			t.Errorf("finding type %q has no impact", findingType)
		}
		if info.Recommendation == "" {
			t.Errorf("finding type %q has no recommendation", findingType)
		}
	}
}
