// annotations.go edit, clear and export endpoints for the annotation store
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obistack/occurrence-go/internal/annotation"
	"github.com/obistack/occurrence-go/internal/export"
)

// EditRequest is the body of an annotation edit. A null value clears the
// field, same as an empty string.
type EditRequest struct {
	Field string  `json:"field"`
	Value *string `json:"value"`
}

// EditAnnotation applies a single field edit to the annotation under the
// given key and persists the store. Returns the resulting annotation, or 204
// when the edit left the entry empty and it was pruned.
func (c *Controller) EditAnnotation(ctx echo.Context) error {
	key := ctx.Param("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing annotation key")
	}

	var req EditRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	value := ""
	if req.Value != nil {
		value = *req.Value
	}

	result, exists, err := c.Annotations.Edit(key, annotation.Field(req.Field), value)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if !exists {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, result)
}

// ClearAnnotations empties the annotation store.
func (c *Controller) ClearAnnotations(ctx echo.Context) error {
	c.Annotations.Clear()
	c.logger.Info("Annotation store cleared")
	return ctx.NoContent(http.StatusNoContent)
}

// ExportAnnotations streams the annotation export as a JSON attachment.
// format=current (default) or format=legacy select the document shape; with
// no current result set the export is a 204 no-op.
func (c *Controller) ExportAnnotations(ctx echo.Context) error {
	format := ctx.QueryParam("format")
	if format == "" {
		format = "current"
	}

	var filename string
	switch format {
	case "current":
		filename = export.FileNameCurrent
	case "legacy":
		filename = export.FileNameLegacy
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown export format: "+format)
	}

	records := c.currentRecords()
	annotations := c.Annotations.All()

	response := ctx.Response()
	response.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	response.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	var err error
	if format == "legacy" {
		err = export.WriteLegacy(response, annotations, records)
	} else {
		err = export.WriteCurrent(response, annotations, records)
	}
	if err != nil {
		if errors.Is(err, export.ErrNoResults) {
			response.Header().Del(echo.HeaderContentDisposition)
			return ctx.NoContent(http.StatusNoContent)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed")
	}
	return nil
}
