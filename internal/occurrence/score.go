// score.go computes per-record analysis scores
package occurrence

// ScoreDensity sets each record's density to the number of source rows that
// collapsed onto it during extraction, i.e. how often the same taxon was
// reported in the same rounded coordinate cell. Rows are matched with the
// same normalization and rounding extraction uses, so every row counts
// toward exactly one record. Suitability is left untouched; it stays null
// until an environmental layer is configured.
func ScoreDensity(records []Record, rows []map[string]string, coordinatePrecision int) {
	counts := make(map[string]float64, len(records))
	for _, row := range rows {
		counts[rowDedupeKey(row, coordinatePrecision)]++
	}

	for i := range records {
		key := recordDedupeKey(&records[i])
		if count, ok := counts[key]; ok {
			density := count
			records[i].Density = &density
		}
	}
}
