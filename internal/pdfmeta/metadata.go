package pdfmeta

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// infoPatterns match the entries of the document Info dictionary, written
// either as a literal string "(...)" or a hex string "<...>".
var infoPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"author", infoEntry("Author")},
	{"creator", infoEntry("Creator")},
	{"producer", infoEntry("Producer")},
	{"title", infoEntry("Title")},
	{"subject", infoEntry("Subject")},
	{"keywords", infoEntry("Keywords")},
	{"creation_date", infoEntry("CreationDate")},
	{"mod_date", infoEntry("ModDate")},
}

func infoEntry(name string) *regexp.Regexp {
	return regexp.MustCompile(`/` + name + `\s*(?:\(((?:\\.|[^\\)])*)\)|<([0-9A-Fa-f\s]*)>)`)
}

// xmpPatterns match the XMP packet fields that identify the author or the
// document lineage.
var xmpPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"xmp_creator", regexp.MustCompile(`(?s)<dc:creator[^>]*>.*?<rdf:li[^>]*>([^<]+)</rdf:li>`)},
	{"xmp_tool", regexp.MustCompile(`xmp:CreatorTool>([^<]+)<`)},
	{"xmp_producer", regexp.MustCompile(`pdf:Producer>([^<]+)<`)},
	{"xmp_document_id", regexp.MustCompile(`xmpMM:DocumentID>([^<]+)<`)},
	{"xmp_instance_id", regexp.MustCompile(`xmpMM:InstanceID>([^<]+)<`)},
	{"xmp_original_document_id", regexp.MustCompile(`xmpMM:OriginalDocumentID>([^<]+)<`)},
}

// extractInfo returns the Info dictionary entries present in data.
func extractInfo(data []byte) []Field {
	content := string(data)
	fields := make([]Field, 0, len(infoPatterns))
	for _, p := range infoPatterns {
		m := p.pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		var value string
		if m[2] != "" {
			value = decodeHexString(m[2])
		} else {
			value = decodeLiteralString(m[1])
		}
		if value = strings.TrimSpace(value); value != "" {
			fields = append(fields, Field{Key: p.key, Value: value})
		}
	}
	return fields
}

// extractXMP returns the XMP fields present in data.
func extractXMP(data []byte) []Field {
	content := string(data)
	fields := make([]Field, 0, len(xmpPatterns))
	for _, p := range xmpPatterns {
		m := p.pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		if value := strings.TrimSpace(m[1]); value != "" {
			fields = append(fields, Field{Key: p.key, Value: value})
		}
	}
	return fields
}

var literalEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
)

// decodeLiteralString unescapes a PDF literal string. Literal strings that
// start with a UTF-16BE byte order mark are decoded as UTF-16.
func decodeLiteralString(s string) string {
	s = literalEscapes.Replace(s)
	if strings.HasPrefix(s, "\xfe\xff") {
		return decodeUTF16([]byte(s))
	}
	return s
}

// decodeHexString decodes a PDF hex string. A FEFF prefix marks UTF-16BE
// text; anything else is taken as PDFDocEncoding, which agrees with Latin-1
// for the printable range.
func decodeHexString(s string) string {
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 == 1 {
		// A missing final digit is zero.
		s += "0"
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ""
	}
	if len(raw) >= 2 && raw[0] == 0xfe && raw[1] == 0xff {
		return decodeUTF16(raw)
	}
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		runes = append(runes, rune(b))
	}
	return string(runes)
}

func decodeUTF16(raw []byte) string {
	dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}
