package provision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
)

// Input carries the admin-supplied fields of a create or update. A nil field
// is absent: required on create only for Name, left unchanged on update.
//
// CategoryTypes and ServiceAreas are raw JSON as submitted in the form.
type Input struct {
	Name           *string
	Description    *string
	Content        *string
	Image          *string
	CategoryTypes  *string
	ServiceAreas   *string
	IsActive       *bool
	SEOTitle       *string
	SEODescription *string
	MetaKeywords   *string
}

// Str returns a pointer to s. Convenience for building Input values.
func Str(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseCategoryTypes decodes a JSON array whose items are either bare labels
// or CategoryType objects. Bare labels become available, zero-priced
// offerings. ok is false when raw is not a JSON array at all; individual
// invalid items are dropped and reported in warnings.
func parseCategoryTypes(raw string, cat category.Category) (types []models.CategoryType, warnings []string, ok bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, nil, false
	}

	types = make([]models.CategoryType, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		var label string
		if err := json.Unmarshal(item, &label); err == nil {
			label = strings.TrimSpace(label)
			if label == "" {
				warnings = append(warnings, fmt.Sprintf("%s[%d]: empty label dropped", cat.TypesField, i))
				continue
			}
			types = append(types, models.CategoryType{Label: label, IsAvailable: true})
			continue
		}

		ct := models.CategoryType{IsAvailable: true}
		if err := json.Unmarshal(item, &ct); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s[%d]: not a label or object, dropped", cat.TypesField, i))
			continue
		}
		if err := validate.Struct(ct); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s[%d]: %v", cat.TypesField, i, err))
			continue
		}
		if cat.DistanceFare() {
			ct.Duration = ""
		} else {
			ct.PricePerKm = 0
		}
		types = append(types, ct)
	}
	return types, warnings, true
}

// parseServiceAreas decodes a JSON array of area names. Blank entries are
// dropped.
func parseServiceAreas(raw string) ([]string, bool) {
	var areas []string
	if err := json.Unmarshal([]byte(raw), &areas); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out, true
}

// present reports whether an optional raw JSON field carries a value.
func present(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}
