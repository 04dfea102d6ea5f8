package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// jsonKind reports the JSON type of a raw value by its first significant byte.
type jsonKind int

const (
	kindInvalid jsonKind = iota
	kindNull
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

// kindOf classifies raw JSON without decoding it.
func kindOf(raw json.RawMessage) jsonKind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return kindInvalid
	}
	switch c := trimmed[0]; {
	case c == 'n':
		return kindNull
	case c == 't' || c == 'f':
		return kindBool
	case c == '"':
		return kindString
	case c == '[':
		return kindArray
	case c == '{':
		return kindObject
	case c == '-' || (c >= '0' && c <= '9'):
		return kindNumber
	default:
		return kindInvalid
	}
}

// decodeObject decodes a JSON object into its raw members.
// It returns false for anything that is not an object.
func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if kindOf(raw) != kindObject {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// decodeArray decodes a JSON array into its raw elements.
func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if kindOf(raw) != kindArray {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// decodeString returns the value of a JSON string. Other types are rejected
// rather than coerced.
func decodeString(raw json.RawMessage) (string, bool) {
	if kindOf(raw) != kindString {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeNumber returns a valid Number only for finite JSON numbers.
func decodeNumber(raw json.RawMessage) Number {
	if kindOf(raw) != kindNumber {
		return Number{}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return Number{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Num(f)
}

// decodeOrderedFactors decodes a JSON object of factor contributions while
// keeping the members in document order. Go maps lose that order, so the
// object is walked token by token.
func decodeOrderedFactors(raw json.RawMessage) ([]Factor, bool) {
	if kindOf(raw) != kindObject {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, false
	}

	factors := make([]Factor, 0)
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}

		f := Factor{Key: key, Value: decodeNumber(value)}
		// A repeated key keeps its first position and its last value,
		// which is what JSON.parse does with an object literal.
		if idx, dup := seen[key]; dup {
			factors[idx] = f
			continue
		}
		seen[key] = len(factors)
		factors = append(factors, f)
	}
	return factors, true
}

// displayString converts a raw JSON value to display text the way a loosely
// typed client would. The boolean is false for "falsy" values: null, false,
// 0, the empty string and malformed input.
func displayString(raw json.RawMessage) (string, bool) {
	switch kindOf(raw) {
	case kindString:
		s, ok := decodeString(raw)
		return s, ok && s != ""
	case kindNumber:
		n := decodeNumber(raw)
		if !n.Valid || n.Value == 0 {
			return "", false
		}
		return strconv.FormatFloat(n.Value, 'f', -1, 64), true
	case kindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil || !b {
			return "", false
		}
		return "true", true
	case kindArray, kindObject:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", false
		}
		return buf.String(), true
	default:
		return "", false
	}
}
