package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obistack/occurrence-go/internal/analysis"
	"github.com/obistack/occurrence-go/internal/annotation"
	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/export"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// memoryState is an in-memory annotation.StateStore for handler tests.
type memoryState struct {
	values map[string][]byte
}

func newMemoryState() *memoryState {
	return &memoryState{values: map[string][]byte{}}
}

func (m *memoryState) Get(key string) ([]byte, bool, error) {
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memoryState) Put(key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *memoryState) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func newTestController() *Controller {
	settings := &conf.Settings{
		Analysis: conf.AnalysisSettings{
			CoordinatePrecision: 1,
			PreviewRows:         10,
			TaxonRank:           "species",
		},
	}
	processor := analysis.New(settings, nil)
	store := annotation.NewStore(newMemoryState())
	return New(settings, processor, store)
}

func doRequest(c *Controller, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func testRecords() []occurrence.Record {
	return []occurrence.Record{
		{AphiaID: i64(141433), ScientificName: "Abra alba", ScientificNameID: "urn:141433",
			DecimalLongitude: f64(4.2), DecimalLatitude: f64(51.1)},
		{AphiaID: i64(140430), ScientificName: "Mya arenaria", ScientificNameID: "urn:140430",
			DecimalLongitude: f64(3.9), DecimalLatitude: f64(51.1)},
	}
}

func TestHealth(t *testing.T) {
	c := newTestController()

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestUploadMultipart(t *testing.T) {
	c := newTestController()

	csvContent := "scientificName,scientificNameID,decimalLongitude,decimalLatitude,taxonRank\n" +
		"Abra alba,urn:lsid:marinespecies.org:taxname:141433,4.21,51.13,species\n"

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", "occurrence.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvContent))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := doRequest(c, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.UploadID)
	require.NotNil(t, resp.Processing)
	assert.True(t, resp.Processing.OccurrenceFileFound)
	assert.Equal(t, 1, resp.Processing.AnalyzedCount)

	// The upload replaced the current result set.
	assert.Len(t, c.currentRecords(), 1)
}

func TestUploadEmpty(t *testing.T) {
	c := newTestController()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload",
		strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := doRequest(c, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOccurrencesJoinsAnnotations(t *testing.T) {
	c := newTestController()
	records := testRecords()
	c.SetRecords(records)

	key := annotation.DeriveKey(&records[0])
	_, _, err := c.Annotations.Edit(key, annotation.FieldDecision, "accept")
	require.NoError(t, err)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/occurrences", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []OccurrenceRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)

	assert.Equal(t, key, rows[0].Key)
	require.NotNil(t, rows[0].Annotation)
	assert.Equal(t, "accept", rows[0].Annotation.Decision)
	assert.Nil(t, rows[1].Annotation)
}

func TestOccurrencesEmpty(t *testing.T) {
	c := newTestController()

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/occurrences", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestEditAnnotation(t *testing.T) {
	c := newTestController()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/annotations/141433_4.2_51.1",
		strings.NewReader(`{"field":"decision","value":"accept"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(c, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result annotation.Annotation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "accept", result.Decision)

	stored, ok := c.Annotations.Get("141433_4.2_51.1")
	require.True(t, ok)
	assert.Equal(t, "accept", stored.Decision)
}

func TestEditAnnotationPrunes(t *testing.T) {
	c := newTestController()

	_, _, err := c.Annotations.Edit("141433_4.2_51.1", annotation.FieldDecision, "accept")
	require.NoError(t, err)

	// Clearing the only populated field prunes the entry.
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/annotations/141433_4.2_51.1",
		strings.NewReader(`{"field":"decision","value":null}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(c, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, c.Annotations.Len())
}

func TestEditAnnotationUnknownField(t *testing.T) {
	c := newTestController()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/annotations/141433_4.2_51.1",
		strings.NewReader(`{"field":"rating","value":"5"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(c, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, c.Annotations.Len())
}

func TestClearAnnotations(t *testing.T) {
	c := newTestController()
	_, _, err := c.Annotations.Edit("141433_4.2_51.1", annotation.FieldComments, "check this")
	require.NoError(t, err)

	rec := doRequest(c, httptest.NewRequest(http.MethodDelete, "/api/v1/annotations", http.NoBody))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, c.Annotations.Len())
}

func TestExportNoResults(t *testing.T) {
	c := newTestController()
	_, _, err := c.Annotations.Edit("141433_4.2_51.1", annotation.FieldDecision, "accept")
	require.NoError(t, err)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/annotations/export", http.NoBody))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestExportCurrent(t *testing.T) {
	c := newTestController()
	records := testRecords()
	c.SetRecords(records)

	key := annotation.DeriveKey(&records[0])
	_, _, err := c.Annotations.Edit(key, annotation.FieldDecision, "accept")
	require.NoError(t, err)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/annotations/export?format=current", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), export.FileNameCurrent)

	var doc []export.CurrentRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc, 1)
	assert.Equal(t, "accept", doc[0].Annotation)
}

func TestExportLegacy(t *testing.T) {
	c := newTestController()
	records := testRecords()
	c.SetRecords(records)

	key := annotation.DeriveKey(&records[1])
	_, _, err := c.Annotations.Edit(key, annotation.FieldDecision, "reject")
	require.NoError(t, err)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/annotations/export?format=legacy", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), export.FileNameLegacy)

	var doc []export.LegacyRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc, 1)
	require.NotNil(t, doc[0].Remove)
	assert.True(t, *doc[0].Remove)
}

func TestExportUnknownFormat(t *testing.T) {
	c := newTestController()
	c.SetRecords(testRecords())

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/annotations/export?format=xml", http.NoBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
