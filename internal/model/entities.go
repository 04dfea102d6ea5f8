package model

import (
	"encoding/json"
	"sort"
)

// Entities maps an extracted-entity category (for example "emails" or
// "company") to its raw JSON value, which the service sends either as a
// single string or as an array. The key set is open-ended.
type Entities map[string]json.RawMessage

// Entity category keys used by the analysis service.
const (
	EntityEmails   = "emails"
	EntityPhones   = "phones"
	EntitySkills   = "skills"
	EntityLocation = "location"
	EntityCompany  = "company"
)

// ReconCategory is the display label of a recon card.
type ReconCategory string

// Recon card categories, in display priority order.
const (
	ReconEmail    ReconCategory = "Email"
	ReconPhone    ReconCategory = "Phone"
	ReconSkill    ReconCategory = "Skill"
	ReconLocation ReconCategory = "Location"
	ReconCompany  ReconCategory = "Company"
)

// reconOrder fixes the order in which entity categories are revealed.
var reconOrder = []struct {
	key      string
	category ReconCategory
}{
	{EntityEmails, ReconEmail},
	{EntityPhones, ReconPhone},
	{EntitySkills, ReconSkill},
	{EntityLocation, ReconLocation},
	{EntityCompany, ReconCompany},
}

// ReconItem is one entity card shown during reconnaissance.
type ReconItem struct {
	Category ReconCategory `json:"category"`
	Value    string        `json:"value"`
}

// decodeEntities returns nil unless raw is a JSON object.
func decodeEntities(raw json.RawMessage) Entities {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	return Entities(obj)
}

// Values returns the display values of one category. Falsy entries are
// skipped and the rest are stringified. It returns nil when the category is
// absent or holds nothing displayable.
func (e Entities) Values(category string) []string {
	raw, ok := e[category]
	if !ok {
		return nil
	}

	if arr, ok := decodeArray(raw); ok {
		var out []string
		for _, item := range arr {
			if s, ok := displayString(item); ok {
				out = append(out, s)
			}
		}
		return out
	}

	if s, ok := displayString(raw); ok {
		return []string{s}
	}
	return nil
}

// Categories returns the category keys present, sorted.
func (e Entities) Categories() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of displayable values across all categories.
func (e Entities) Count() int {
	n := 0
	for k := range e {
		n += len(e.Values(k))
	}
	return n
}

// BuildReconList flattens the five recon categories into cards in the fixed
// order Email, Phone, Skill, Location, Company. Other categories are ignored.
// The result is never nil.
func BuildReconList(e Entities) []ReconItem {
	items := make([]ReconItem, 0)
	for _, o := range reconOrder {
		for _, v := range e.Values(o.key) {
			items = append(items, ReconItem{Category: o.category, Value: v})
		}
	}
	return items
}
