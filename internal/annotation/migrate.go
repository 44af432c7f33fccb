// migrate.go upgrades persisted annotation blobs from the legacy bare-string
// schema to the current object schema
package annotation

import (
	"bytes"
	"encoding/json"

	"github.com/obistack/occurrence-go/internal/errors"
)

// entryVariant is the tagged decoding of one persisted entry. Exactly one of
// the two shapes is populated; the discriminant is checked once at load time
// so everything downstream sees only current-shape annotations.
type entryVariant struct {
	legacy   string
	current  Annotation
	isLegacy bool
}

// decodeEntry classifies a raw persisted value as legacy (bare decision
// string) or current (annotation object) and decodes it accordingly.
func decodeEntry(raw json.RawMessage) (entryVariant, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return entryVariant{}, errors.Newf("empty annotation entry").
			Category(errors.CategoryValidation).
			Component("annotation").
			Build()
	}

	if trimmed[0] == '"' {
		var decision string
		if err := json.Unmarshal(trimmed, &decision); err != nil {
			return entryVariant{}, err
		}
		return entryVariant{legacy: decision, isLegacy: true}, nil
	}

	var current Annotation
	if err := json.Unmarshal(trimmed, &current); err != nil {
		return entryVariant{}, err
	}
	return entryVariant{current: current}, nil
}

// upgrade converts the variant to the current shape. Upgrading an already
// current entry is a no-op, which makes migration idempotent.
func (v entryVariant) upgrade() Annotation {
	if v.isLegacy {
		return Annotation{Decision: v.legacy, Alternative: "", Comments: ""}
	}
	return v.current
}

// Migrate converts a raw persisted map, which may freely mix legacy and
// current entries, into a current-shape Map. Entries that decode to all-empty
// annotations are dropped so the pruning invariant holds from the first load.
// Undecodable entries are skipped and reported through the returned error
// slice; migration itself never fails.
func Migrate(raw map[string]json.RawMessage) (Map, []error) {
	migrated := make(Map, len(raw))
	var errs []error

	for key, value := range raw {
		variant, err := decodeEntry(value)
		if err != nil {
			errs = append(errs, errors.New(err).
				Category(errors.CategoryFileParsing).
				Component("annotation").
				Context("key", key).
				Build())
			continue
		}

		a := variant.upgrade()
		if a.IsEmpty() {
			continue
		}
		migrated[key] = a
	}

	return migrated, errs
}
