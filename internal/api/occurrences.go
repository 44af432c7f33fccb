// occurrences.go serves the current result set joined with annotations
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obistack/occurrence-go/internal/annotation"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// OccurrenceRow is one record of the current result set with its derived
// annotation key and, when present, its stored annotation.
type OccurrenceRow struct {
	Key string `json:"key"`
	occurrence.Record
	Annotation *annotation.Annotation `json:"annotation,omitempty"`
}

// Occurrences returns the current records, density-ranked, each with its
// derived key and current annotation so a client can render and edit rows
// without deriving keys itself.
func (c *Controller) Occurrences(ctx echo.Context) error {
	records := c.currentRecords()

	rows := make([]OccurrenceRow, 0, len(records))
	for i := range records {
		row := OccurrenceRow{
			Key:    annotation.DeriveKey(&records[i]),
			Record: records[i],
		}
		if a, ok := c.Annotations.Get(row.Key); ok {
			row.Annotation = &a
		}
		rows = append(rows, row)
	}

	return ctx.JSON(http.StatusOK, rows)
}
