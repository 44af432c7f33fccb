// extract.go turns parsed file rows into unique species occurrence records
package occurrence

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/obistack/occurrence-go/internal/errors"
)

// RequiredColumns are the columns an occurrence file must contain for
// species extraction.
var RequiredColumns = []string{
	"scientificName",
	"scientificNameID",
	"decimalLongitude",
	"decimalLatitude",
}

// aphiaIDPattern extracts the trailing digit run of a scientificNameID,
// e.g. "urn:lsid:marinespecies.org:taxname:141433" -> 141433.
var aphiaIDPattern = regexp.MustCompile(`(\d+)$`)

// FilterByTaxonRank returns the rows whose taxonRank column matches rank,
// case-insensitively. An empty rank disables the filter.
func FilterByTaxonRank(rows []map[string]string, rank string) []map[string]string {
	if rank == "" {
		return rows
	}

	filtered := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row["taxonRank"]), rank) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// ExtractSpecies builds unique occurrence records from parsed rows.
// Coordinates are rounded to the given number of decimal places; unparseable
// coordinates become null rather than failing the row. Only the first row
// for each (scientificName, scientificNameID, longitude, latitude)
// combination is kept, preserving input order.
func ExtractSpecies(rows []map[string]string, coordinatePrecision int) ([]Record, error) {
	if len(rows) == 0 {
		return []Record{}, nil
	}

	if missing := missingColumns(rows[0]); len(missing) > 0 {
		found := make([]string, 0, len(rows[0]))
		for column := range rows[0] {
			found = append(found, column)
		}
		return nil, errors.Newf("missing required columns: %v, found columns: %v", missing, found).
			Category(errors.CategoryValidation).
			Component("occurrence").
			Build()
	}

	seen := make(map[string]struct{}, len(rows))
	records := make([]Record, 0, len(rows))

	for _, row := range rows {
		scientificName := strings.TrimSpace(row["scientificName"])
		scientificNameID := strings.TrimSpace(row["scientificNameID"])

		lon := parseCoordinate(row["decimalLongitude"], coordinatePrecision)
		lat := parseCoordinate(row["decimalLatitude"], coordinatePrecision)

		dedupeKey := rowDedupeKey(row, coordinatePrecision)
		if _, ok := seen[dedupeKey]; ok {
			continue
		}
		seen[dedupeKey] = struct{}{}

		records = append(records, Record{
			AphiaID:          extractAphiaID(scientificNameID),
			ScientificName:   scientificName,
			ScientificNameID: scientificNameID,
			Phylum:           strings.TrimSpace(row["phylum"]),
			Class:            strings.TrimSpace(row["class"]),
			DecimalLongitude: lon,
			DecimalLatitude:  lat,
			FootprintWKT:     strings.TrimSpace(row["footprintWKT"]),
		})
	}

	return records, nil
}

// rowDedupeKey builds the (name, nameID, lon, lat) identity of a raw row,
// with the same trimming and coordinate rounding extraction applies.
func rowDedupeKey(row map[string]string, coordinatePrecision int) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		strings.TrimSpace(row["scientificName"]),
		strings.TrimSpace(row["scientificNameID"]),
		formatCoordinate(parseCoordinate(row["decimalLongitude"], coordinatePrecision)),
		formatCoordinate(parseCoordinate(row["decimalLatitude"], coordinatePrecision)))
}

// recordDedupeKey builds the same identity from an extracted record.
func recordDedupeKey(rec *Record) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		rec.ScientificName, rec.ScientificNameID,
		formatCoordinate(rec.DecimalLongitude), formatCoordinate(rec.DecimalLatitude))
}

// missingColumns lists the required columns absent from a header row map.
func missingColumns(row map[string]string) []string {
	var missing []string
	for _, column := range RequiredColumns {
		if _, ok := row[column]; !ok {
			missing = append(missing, column)
		}
	}
	return missing
}

// parseCoordinate parses and rounds a coordinate string, returning nil for
// empty or unparseable values.
func parseCoordinate(raw string, precision int) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	rounded := roundTo(value, precision)
	return &rounded
}

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// formatCoordinate renders a nullable coordinate for dedupe keys.
func formatCoordinate(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'g', -1, 64)
}

// extractAphiaID parses the trailing digits of a scientificNameID into an
// AphiaID, returning nil when the identifier has no trailing digit run.
func extractAphiaID(scientificNameID string) *int64 {
	if scientificNameID == "" {
		return nil
	}
	match := aphiaIDPattern.FindStringSubmatch(scientificNameID)
	if match == nil {
		return nil
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
