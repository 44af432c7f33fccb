// Package export builds the downloadable annotation documents by joining the
// annotation store against the current analysis result set. Both formats are
// pure projections; exporting never mutates the store.
package export

import (
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"

	"github.com/obistack/occurrence-go/internal/annotation"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// Fixed download file names distinguishing the two formats.
const (
	FileNameCurrent = "annotations.json"
	FileNameLegacy  = "annotations_legacy.json"
)

// ErrNoResults is returned when there is no current result set to join
// against; callers turn it into a silent no-op instead of producing a
// malformed document.
var ErrNoResults = errors.New("no analysis results available for export")

// CurrentRecord is one entry of the current-format export document.
type CurrentRecord struct {
	AphiaID          *int64   `json:"aphiaid"`
	ScientificName   string   `json:"scientificName"`
	ScientificNameID string   `json:"scientificNameID"`
	Phylum           string   `json:"phylum"`
	Class            string   `json:"class"`
	DecimalLongitude *float64 `json:"decimalLongitude"`
	DecimalLatitude  *float64 `json:"decimalLatitude"`
	FootprintWKT     string   `json:"footprintWKT"`
	Density          *float64 `json:"density"`
	Suitability      *float64 `json:"suitability"`
	Annotation       string   `json:"annotation"`
	Alternative      string   `json:"alternative"`
	Comments         string   `json:"comments"`
}

// LegacyRecord is one entry of the legacy-format export document. It differs
// from CurrentRecord in the AphiaID field name, the parsed new_AphiaID, and
// the remove flag that only reject entries carry.
type LegacyRecord struct {
	AphiaID          *int64   `json:"AphiaID"`
	NewAphiaID       *int64   `json:"new_AphiaID"`
	Remove           *bool    `json:"remove,omitempty"`
	ScientificName   string   `json:"scientificName"`
	ScientificNameID string   `json:"scientificNameID"`
	Phylum           string   `json:"phylum"`
	Class            string   `json:"class"`
	DecimalLongitude *float64 `json:"decimalLongitude"`
	DecimalLatitude  *float64 `json:"decimalLatitude"`
	FootprintWKT     string   `json:"footprintWKT"`
	Density          *float64 `json:"density"`
	Suitability      *float64 `json:"suitability"`
	Annotation       string   `json:"annotation"`
	Alternative      string   `json:"alternative"`
	Comments         string   `json:"comments"`
}

// Current builds the current-format export: every stored annotation whose
// key matches a record in the current result set and whose decision is
// accept or reject, projected onto the record and sorted by aphiaid,
// longitude, latitude.
func Current(annotations annotation.Map, records []occurrence.Record) ([]CurrentRecord, error) {
	joined, err := join(annotations, records)
	if err != nil {
		return nil, err
	}

	out := make([]CurrentRecord, 0, len(joined))
	for i := range joined {
		out = append(out, projectCurrent(&joined[i]))
	}
	return out, nil
}

// Legacy builds the legacy-format export. Same filter and join as Current;
// the projection renames AphiaID, parses the alternative into new_AphiaID,
// and sets remove only on reject entries: true when no alternative was
// suggested, false when one was.
func Legacy(annotations annotation.Map, records []occurrence.Record) ([]LegacyRecord, error) {
	joined, err := join(annotations, records)
	if err != nil {
		return nil, err
	}

	out := make([]LegacyRecord, 0, len(joined))
	for i := range joined {
		current := projectCurrent(&joined[i])

		legacy := LegacyRecord{
			AphiaID:          current.AphiaID,
			NewAphiaID:       parseAlternative(current.Alternative),
			ScientificName:   current.ScientificName,
			ScientificNameID: current.ScientificNameID,
			Phylum:           current.Phylum,
			Class:            current.Class,
			DecimalLongitude: current.DecimalLongitude,
			DecimalLatitude:  current.DecimalLatitude,
			FootprintWKT:     current.FootprintWKT,
			Density:          current.Density,
			Suitability:      current.Suitability,
			Annotation:       current.Annotation,
			Alternative:      current.Alternative,
			Comments:         current.Comments,
		}
		if current.Annotation == annotation.DecisionReject {
			remove := current.Alternative == ""
			legacy.Remove = &remove
		}
		out = append(out, legacy)
	}
	return out, nil
}

// WriteCurrent writes the current-format document as formatted JSON.
func WriteCurrent(w io.Writer, annotations annotation.Map, records []occurrence.Record) error {
	out, err := Current(annotations, records)
	if err != nil {
		return err
	}
	return writeDocument(w, out)
}

// WriteLegacy writes the legacy-format document as formatted JSON.
func WriteLegacy(w io.Writer, annotations annotation.Map, records []occurrence.Record) error {
	out, err := Legacy(annotations, records)
	if err != nil {
		return err
	}
	return writeDocument(w, out)
}

// entry pairs a stored annotation with the current record its key matched.
type entry struct {
	key        string
	annotation annotation.Annotation
	record     *occurrence.Record
}

// join builds the reverse lookup from derived key to current record, filters
// annotations to those matching a current record with an accept or reject
// decision, and sorts the result. Stale keys stay in the store but never
// reach an export.
func join(annotations annotation.Map, records []occurrence.Record) ([]entry, error) {
	if len(records) == 0 {
		return nil, ErrNoResults
	}

	byKey := make(map[string]*occurrence.Record, len(records))
	for i := range records {
		key := annotation.DeriveKey(&records[i])
		if _, ok := byKey[key]; !ok {
			byKey[key] = &records[i]
		}
	}

	joined := make([]entry, 0, len(annotations))
	for key, a := range annotations {
		if a.Decision != annotation.DecisionAccept && a.Decision != annotation.DecisionReject {
			continue
		}
		record, ok := byKey[key]
		if !ok {
			continue
		}
		joined = append(joined, entry{key: key, annotation: a, record: record})
	}

	sort.SliceStable(joined, func(i, j int) bool {
		return lessEntry(&joined[i], &joined[j])
	})
	return joined, nil
}

// projectCurrent maps a joined entry to the current-format projection. The
// identifying triple comes from the key, not the record, so the document
// reflects exactly the identity the annotation was stored under.
func projectCurrent(e *entry) CurrentRecord {
	aphiaID, lon, lat, _ := annotation.ParseKey(e.key)

	return CurrentRecord{
		AphiaID:          aphiaID,
		ScientificName:   e.record.ScientificName,
		ScientificNameID: e.record.ScientificNameID,
		Phylum:           e.record.Phylum,
		Class:            e.record.Class,
		DecimalLongitude: lon,
		DecimalLatitude:  lat,
		FootprintWKT:     e.record.FootprintWKT,
		Density:          e.record.Density,
		Suitability:      e.record.Suitability,
		Annotation:       e.annotation.Decision,
		Alternative:      e.annotation.Alternative,
		Comments:         e.annotation.Comments,
	}
}

// lessEntry orders by aphiaid, longitude, latitude ascending with missing
// values treated as 0.
func lessEntry(a, b *entry) bool {
	aID, aLon, aLat, _ := annotation.ParseKey(a.key)
	bID, bLon, bLat, _ := annotation.ParseKey(b.key)

	if intOrZero(aID) != intOrZero(bID) {
		return intOrZero(aID) < intOrZero(bID)
	}
	if floatOrZero(aLon) != floatOrZero(bLon) {
		return floatOrZero(aLon) < floatOrZero(bLon)
	}
	return floatOrZero(aLat) < floatOrZero(bLat)
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// parseAlternative parses an alternative taxon suggestion into an AphiaID,
// returning nil when it is empty or not numeric.
func parseAlternative(alternative string) *int64 {
	if alternative == "" {
		return nil
	}
	id, err := strconv.ParseInt(alternative, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// writeDocument renders a formatted JSON document.
func writeDocument(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
