package mapping

import (
	"fmt"
	"math"
	"strings"
)

// Detection is the detector's best guess for an entity plus per-field scores.
type Detection struct {
	Entity     EntityType    `json:"entity" yaml:"entity"`
	Mapping    ColumnMapping `json:"mapping" yaml:"mapping"`
	Confidence Confidence    `json:"confidence" yaml:"confidence"`
}

// Detect scores every header against every canonical field of entity.
//
// A header matching the pattern at position i of a field's list scores
// 1 - 0.1*i. A field keeps the first header with the highest score, so an
// exact "Date" beats "Transaction Date" whichever comes first. One header
// may feed several fields; each field receives at most one header.
func Detect(entity EntityType, headers []string) (*Detection, error) {
	s, err := lookup(entity)
	if err != nil {
		return nil, err
	}

	mapping := make(ColumnMapping, len(s.fields))
	confidence := make(Confidence, len(s.fields))

	for _, f := range s.fields {
		mapping[f.field] = ""
		confidence[f.field] = 0

		for _, header := range headers {
			h := strings.TrimSpace(header)
			if h == "" {
				continue
			}

			idx := matchIndex(f, h)
			if idx < 0 {
				continue
			}

			score := patternScore(idx)
			if score > confidence[f.field] {
				mapping[f.field] = header
				confidence[f.field] = score
			}
		}
	}

	return &Detection{Entity: entity, Mapping: mapping, Confidence: confidence}, nil
}

// matchIndex returns the position of the first pattern matching header, or -1.
func matchIndex(f fieldPatterns, header string) int {
	for i, p := range f.patterns {
		if p.MatchString(header) {
			return i
		}
	}
	return -1
}

func patternScore(idx int) float64 {
	score := 1 - float64(idx)*0.1
	if score < 0 {
		return 0
	}
	return math.Round(score*100) / 100
}

// Apply overlays override onto base. Only fields known to the entity are
// taken, and an explicit empty header unmaps the field.
func Apply(entity EntityType, base, override ColumnMapping) (ColumnMapping, error) {
	s, err := lookup(entity)
	if err != nil {
		return nil, err
	}

	out := make(ColumnMapping, len(s.fields))
	for _, f := range s.fields {
		out[f.field] = base[f.field]
		if header, ok := override[f.field]; ok {
			out[f.field] = header
		}
	}
	return out, nil
}

// CheckHeaders verifies every mapped header exists in headers.
func CheckHeaders(m ColumnMapping, headers []string) error {
	known := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		known[h] = struct{}{}
	}

	var missing []string
	for field, header := range m {
		if header == "" {
			continue
		}
		if _, ok := known[header]; !ok {
			missing = append(missing, fmt.Sprintf("%s -> %q", field, header))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("mapped headers not found in file: %s", strings.Join(sorted(missing), ", "))
	}
	return nil
}
