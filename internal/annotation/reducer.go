// reducer.go pure state transition for annotation edits
package annotation

import (
	"github.com/obistack/occurrence-go/internal/errors"
)

// Field names an editable annotation field.
type Field string

const (
	FieldDecision    Field = "decision"
	FieldAlternative Field = "alternative"
	FieldComments    Field = "comments"
)

// Valid reports whether the field is one of the three editable fields.
func (f Field) Valid() bool {
	switch f {
	case FieldDecision, FieldAlternative, FieldComments:
		return true
	default:
		return false
	}
}

// ApplyEdit returns a new map with a single field edit applied to the entry
// for key, merged with the entry's other existing fields (or an all-empty
// default when no entry existed). If the merge leaves every field empty the
// entry is removed entirely, never retained as an empty record. The input
// map is not modified; persistence is the caller's concern.
func ApplyEdit(m Map, key string, field Field, value string) (Map, error) {
	if !field.Valid() {
		return nil, errors.Newf("unknown annotation field %q", field).
			Category(errors.CategoryValidation).
			Component("annotation").
			Build()
	}

	next := m.Clone()

	entry := next[key] // zero value is the all-empty default
	switch field {
	case FieldDecision:
		entry.Decision = value
	case FieldAlternative:
		entry.Alternative = value
	case FieldComments:
		entry.Comments = value
	}

	if entry.IsEmpty() {
		delete(next, key)
	} else {
		next[key] = entry
	}

	return next, nil
}
