package model

// Severity is an ordered risk tier. It is used both for attack vectors
// returned by the analysis service and for the local pre-flight findings.
type Severity int

const (
	// SeverityInfo is informational: no direct exposure.
	SeverityInfo Severity = iota

	// SeverityLow marks minor exposure that needs other data to be useful.
	SeverityLow

	// SeverityMedium marks moderate exposure, shown as "Moderate".
	SeverityMedium

	// SeverityHigh marks serious exposure.
	SeverityHigh

	// SeverityCritical marks exposure that identifies the subject directly.
	SeverityCritical
)

// String returns the upper-case identifier used in logs and JSON.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Label returns the label shown on dashboard cards.
func (s Severity) Label() string {
	switch s {
	case SeverityInfo:
		return "Informational"
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Moderate"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the severity as its String form.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finding is one local observation about a document, produced before it is
// uploaded (embedded author names, GPS tags and so on).
type Finding struct {
	// Type is the finding type identifier, a key of findingInfoMapping.
	Type string `json:"type"`

	Severity Severity `json:"severity"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Value is the extracted value, e.g. the author name.
	Value string `json:"value,omitempty"`

	// Impact and Recommendation come from findingInfoMapping.
	Impact         string `json:"impact,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// FindingInfo describes a finding type.
type FindingInfo struct {
	Severity       Severity
	Title          string
	Impact         string
	Recommendation string
}

// findingInfoMapping is the single source of severity for local findings.
var findingInfoMapping = map[string]FindingInfo{
	"exif_gps": {
		Severity:       SeverityCritical,
		Title:          "GPS coordinates in embedded photo",
		Impact:         "A photo inside the document carries the location where it was taken.",
		Recommendation: "Re-export the photo with location metadata stripped before embedding it.",
	},
	"exif_serial": {
		Severity:       SeverityHigh,
		Title:          "Camera serial number in embedded photo",
		Impact:         "A device serial number links this document to other photos from the same camera.",
		Recommendation: "Strip EXIF metadata from embedded images.",
	},
	"exif_author": {
		Severity:       SeverityHigh,
		Title:          "Author or copyright in embedded photo",
		Impact:         "The photo names its creator independently of the document text.",
		Recommendation: "Strip EXIF metadata from embedded images.",
	},
	"pdf_author": {
		Severity:       SeverityMedium,
		Title:          "Document author metadata",
		Impact:         "The PDF Info dictionary names an author, often an OS account name.",
		Recommendation: "Clear the author field in the export settings of your editor.",
	},
	"xmp_creator": {
		Severity:       SeverityMedium,
		Title:          "XMP creator metadata",
		Impact:         "XMP metadata repeats the author name even when the Info dictionary is cleared.",
		Recommendation: "Export with metadata disabled or sanitize the file with a metadata scrubber.",
	},
	"exif_camera": {
		Severity:       SeverityMedium,
		Title:          "Camera make or model in embedded photo",
		Impact:         "Device information narrows down who took the photo.",
		Recommendation: "Strip EXIF metadata from embedded images.",
	},
	"xmp_document_id": {
		Severity:       SeverityLow,
		Title:          "Persistent document identifier",
		Impact:         "XMP document IDs survive edits and correlate different versions of the file.",
		Recommendation: "Create a fresh export instead of editing a previously shared file.",
	},
	"pdf_creator": {
		Severity:       SeverityLow,
		Title:          "Authoring software",
		Impact:         "The creating application and version are recorded.",
		Recommendation: "Usually harmless; remove if you share documents anonymously.",
	},
	"pdf_producer": {
		Severity:       SeverityLow,
		Title:          "PDF producer",
		Impact:         "The library that produced the PDF is recorded.",
		Recommendation: "Usually harmless; remove if you share documents anonymously.",
	},
	"pdf_dates": {
		Severity:       SeverityLow,
		Title:          "Creation or modification time",
		Impact:         "Timestamps with offsets reveal the time zone the document was edited in.",
		Recommendation: "Clear dates in the export settings.",
	},
	"exif_datetime": {
		Severity:       SeverityLow,
		Title:          "Timestamp in embedded photo",
		Impact:         "Capture time combined with other data narrows down the subject's routine.",
		Recommendation: "Strip EXIF metadata from embedded images.",
	},
	"pdf_title": {
		Severity:       SeverityInfo,
		Title:          "Document title",
		Impact:         "The title field is visible to anyone opening document properties.",
		Recommendation: "Check that the title does not contain internal file names.",
	},
	"document_fingerprint": {
		Severity:       SeverityInfo,
		Title:          "Document fingerprint",
		Impact:         "SHA3-256 of the file, recorded locally to recognise repeated uploads.",
		Recommendation: "No action needed.",
	},
}

// GetSeverity returns the severity of a finding type, or SeverityInfo for
// unknown types.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the description of a finding type. Unknown types get
// an informational placeholder.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Title:          findingType,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess risk.",
	}
}

// NewFinding builds a Finding of the given type with its mapped metadata.
func NewFinding(findingType, value string) Finding {
	info := GetFindingInfo(findingType)
	return Finding{
		Type:           findingType,
		Severity:       info.Severity,
		Title:          info.Title,
		Value:          value,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
	}
}
