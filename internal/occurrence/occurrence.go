// Package occurrence defines the species occurrence data model and the
// parsing, extraction and ranking steps that turn an uploaded Darwin Core
// style file into analyzable occurrence records.
package occurrence

import (
	"math"
	"sort"
)

// Record represents a single species occurrence produced by analysis.
// Pointer fields are nullable in the wire format; a nil value marshals to
// JSON null.
type Record struct {
	AphiaID          *int64   `json:"aphiaid"`
	ScientificName   string   `json:"scientificName"`
	ScientificNameID string   `json:"scientificNameID"`
	Phylum           string   `json:"phylum"`
	Class            string   `json:"class"`
	DecimalLongitude *float64 `json:"decimalLongitude"`
	DecimalLatitude  *float64 `json:"decimalLatitude"`
	FootprintWKT     string   `json:"footprintWKT,omitempty"`
	Density          *float64 `json:"density"`
	Suitability      *float64 `json:"suitability"`
}

// RankByDensity returns the records ordered by density ascending. Records
// without a density sort after every record with one; ties and runs of
// missing densities keep their input order. The input slice is not modified.
func RankByDensity(records []Record) []Record {
	ranked := make([]Record, len(records))
	copy(ranked, records)

	sort.SliceStable(ranked, func(i, j int) bool {
		return densityOf(&ranked[i]) < densityOf(&ranked[j])
	})
	return ranked
}

// densityOf treats a missing density as +Inf so those records sort last.
func densityOf(r *Record) float64 {
	if r.Density == nil {
		return math.Inf(1)
	}
	return *r.Density
}
