package entity

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

type TemplateField struct {
	FieldName      string `json:"field_name"`
	QueryPhrase    string `json:"query_phrase"`
	ExpectedFormat string `json:"expected_format"`
	Required       bool   `json:"required"`
}

type TemplateFields []TemplateField

func (f TemplateFields) Value() (driver.Value, error) {
	return jsoniter.Marshal(f)
}

func (f *TemplateFields) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return jsoniter.Unmarshal(v, f)
	case string:
		return jsoniter.Unmarshal([]byte(v), f)
	case nil:
		*f = nil
		return nil
	default:
		return errors.New("unsupported source type for template fields")
	}
}

type BoundingHint struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type BoundingHints map[string]BoundingHint

func (h BoundingHints) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	return jsoniter.Marshal(h)
}

func (h *BoundingHints) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return jsoniter.Unmarshal(v, h)
	case string:
		return jsoniter.Unmarshal([]byte(v), h)
	case nil:
		*h = nil
		return nil
	default:
		return errors.New("unsupported source type for bounding hints")
	}
}

// CardTemplate drives OCR query construction for one employee-card layout.
// Rows are mutated by operator tooling only.
type CardTemplate struct {
	PatternID           string         `db:"pattern_id"`
	CardType            string         `db:"card_type"`
	IsActive            bool           `db:"is_active"`
	Fields              TemplateFields `db:"fields"`
	GeometricHints      BoundingHints  `db:"geometric_hints"`
	ConfidenceThreshold float64        `db:"confidence_threshold"`
	Description         string         `db:"description"`
	CreatedAt           time.Time      `db:"created_at"`
}

func (t CardTemplate) Validate() error {
	seen := make(map[string]bool, len(t.Fields))
	required := 0
	for _, f := range t.Fields {
		if seen[f.FieldName] {
			return fmt.Errorf("duplicate field name %q in template %s", f.FieldName, t.PatternID)
		}
		seen[f.FieldName] = true
		if f.Required {
			required++
		}
	}

	if required == 0 {
		return fmt.Errorf("template %s has no required fields", t.PatternID)
	}

	return nil
}
