// key.go derives the stable identity string that ties an annotation to an
// occurrence across analysis runs
package annotation

import (
	"strconv"
	"strings"

	"github.com/obistack/occurrence-go/internal/occurrence"
)

const (
	// keyDelimiter joins the key components. It cannot occur inside them,
	// as all components are numeric or the sentinel.
	keyDelimiter = "_"

	// keySentinel stands in for a missing component. A legitimately numeric
	// component can never equal it; if a future identifier scheme allowed
	// the literal string "null", distinct occurrences would silently share
	// a key. Known collision risk, kept for compatibility with existing
	// persisted annotations.
	keySentinel = "null"
)

// DeriveKey computes the identity key of an occurrence record from its
// (aphiaid, decimalLongitude, decimalLatitude) triple. It is pure and total:
// missing components map to the sentinel instead of failing. Records with
// identical triples always produce identical keys, no matter how their other
// fields differ.
func DeriveKey(rec *occurrence.Record) string {
	parts := []string{
		formatInt(rec.AphiaID),
		formatFloat(rec.DecimalLongitude),
		formatFloat(rec.DecimalLatitude),
	}
	return strings.Join(parts, keyDelimiter)
}

// ParseKey recovers the nullable identifying triple from a derived key.
// Components that do not parse as numbers (including the sentinel) come back
// as nil. Returns ok=false when the key does not have three components.
func ParseKey(key string) (aphiaID *int64, longitude, latitude *float64, ok bool) {
	parts := strings.Split(key, keyDelimiter)
	if len(parts) != 3 {
		return nil, nil, nil, false
	}

	if id, err := strconv.ParseInt(parts[0], 10, 64); err == nil {
		aphiaID = &id
	}
	if lon, err := strconv.ParseFloat(parts[1], 64); err == nil {
		longitude = &lon
	}
	if lat, err := strconv.ParseFloat(parts[2], 64); err == nil {
		latitude = &lat
	}
	return aphiaID, longitude, latitude, true
}

func formatInt(value *int64) string {
	if value == nil {
		return keySentinel
	}
	return strconv.FormatInt(*value, 10)
}

func formatFloat(value *float64) string {
	if value == nil {
		return keySentinel
	}
	return strconv.FormatFloat(*value, 'g', -1, 64)
}
