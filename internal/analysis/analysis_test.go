package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// fakeNormalizer records the call and optionally rewrites or fails.
type fakeNormalizer struct {
	called bool
	fail   bool
	valid  map[int64]int64
}

func (f *fakeNormalizer) NormalizeOccurrences(_ context.Context, records []occurrence.Record) error {
	f.called = true
	if f.fail {
		return errors.New("worms unavailable")
	}
	for i := range records {
		if records[i].AphiaID == nil {
			continue
		}
		if valid, ok := f.valid[*records[i].AphiaID]; ok {
			records[i].AphiaID = &valid
		}
	}
	return nil
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Analysis: conf.AnalysisSettings{
			CoordinatePrecision: 1,
			PreviewRows:         10,
			TaxonRank:           "species",
		},
	}
}

const occurrenceCSV = "scientificName,scientificNameID,decimalLongitude,decimalLatitude,taxonRank,phylum\n" +
	"Abra alba,urn:lsid:marinespecies.org:taxname:141433,4.21,51.13,species,Mollusca\n" +
	"Abra alba,urn:lsid:marinespecies.org:taxname:141433,4.24,51.08,species,Mollusca\n" +
	"Mya arenaria,urn:lsid:marinespecies.org:taxname:140430,3.9,51.1,species,Mollusca\n" +
	"Mollusca,urn:lsid:marinespecies.org:taxname:51,3.9,51.1,phylum,Mollusca\n"

func TestProcessUpload(t *testing.T) {
	normalizer := &fakeNormalizer{valid: map[int64]int64{141433: 141433, 140430: 140430}}
	processor := New(testSettings(), normalizer)

	result := processor.ProcessUpload(context.Background(), []UploadedFile{
		{Name: "meta.xml", Content: []byte("<archive/>")},
		{Name: "occurrence.csv", Content: []byte(occurrenceCSV)},
	})

	assert.True(t, result.OccurrenceFileFound)
	assert.Equal(t, "occurrence.csv", result.OccurrenceFilename)
	assert.Equal(t, ",", result.DetectedDelimiter)
	assert.Equal(t, 4, result.RowCount)
	assert.Equal(t, 6, result.ColumnCount)
	assert.Equal(t, []string{"scientificName", "scientificNameID", "decimalLongitude", "decimalLatitude", "taxonRank", "phylum"}, result.Columns)
	assert.Len(t, result.ParsedData, 4, "preview covers all rows when under the limit")

	// The phylum row is filtered out; the two Abra alba rows round into the
	// same cell and dedupe to one record.
	assert.Equal(t, 3, result.FilteredRowCount)
	assert.Equal(t, 2, result.UniqueOccurrenceCount)
	assert.Equal(t, 2, result.AnalyzedCount)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.AnalysisError)
	assert.True(t, normalizer.called)

	require.Len(t, result.AnalyzedOccurrences, 2)
	// Ranked ascending by density: Mya (1 row) before Abra (2 rows).
	assert.Equal(t, "Mya arenaria", result.AnalyzedOccurrences[0].ScientificName)
	require.NotNil(t, result.AnalyzedOccurrences[1].Density)
	assert.Equal(t, 2.0, *result.AnalyzedOccurrences[1].Density)
}

func TestProcessUploadNoOccurrenceFile(t *testing.T) {
	processor := New(testSettings(), nil)

	result := processor.ProcessUpload(context.Background(), []UploadedFile{
		{Name: "event.txt", Content: []byte("eventID\n1\n")},
	})

	assert.False(t, result.OccurrenceFileFound)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.AnalyzedOccurrences)
}

func TestProcessUploadUndetectableDelimiter(t *testing.T) {
	processor := New(testSettings(), nil)

	result := processor.ProcessUpload(context.Background(), []UploadedFile{
		{Name: "occurrence.txt", Content: []byte("justoneword\nanother\n")},
	})

	assert.True(t, result.OccurrenceFileFound)
	assert.NotEmpty(t, result.Error, "parse failures land in error")
	assert.Equal(t, 0, result.AnalyzedCount)
}

func TestProcessUploadMissingColumns(t *testing.T) {
	processor := New(testSettings(), nil)

	result := processor.ProcessUpload(context.Background(), []UploadedFile{
		{Name: "occurrence.csv", Content: []byte("scientificName,taxonRank\nAbra alba,species\n")},
	})

	assert.True(t, result.OccurrenceFileFound)
	assert.Equal(t, 1, result.RowCount, "parse stages still reported")
	assert.Contains(t, result.AnalysisError, "missing required columns")
	assert.Empty(t, result.Error)
	assert.Empty(t, result.AnalyzedOccurrences)
}

func TestProcessUploadNormalizationFailureIsNonFatal(t *testing.T) {
	normalizer := &fakeNormalizer{fail: true}
	processor := New(testSettings(), normalizer)

	result := processor.ProcessUpload(context.Background(), []UploadedFile{
		{Name: "occurrence.csv", Content: []byte(occurrenceCSV)},
	})

	assert.Contains(t, result.AnalysisError, "taxon normalization failed")
	assert.Equal(t, 2, result.AnalyzedCount, "records still analyzed with original IDs")
}

func TestProcessUploadReportsLiteralDelimiter(t *testing.T) {
	processor := New(testSettings(), nil)

	tsvContent := "scientificName\tscientificNameID\tdecimalLongitude\tdecimalLatitude\ttaxonRank\n" +
		"Abra alba\turn:lsid:marinespecies.org:taxname:141433\t4.2\t51.1\tspecies\n"

	result := processor.ProcessUpload(context.Background(), []UploadedFile{
		{Name: "occurrence.tsv", Content: []byte(tsvContent)},
	})

	assert.Equal(t, "\t", result.DetectedDelimiter, "envelope carries the delimiter character itself")
	assert.Equal(t, 1, result.AnalyzedCount)
}

func TestProcessUploadPreviewLimit(t *testing.T) {
	settings := testSettings()
	settings.Analysis.PreviewRows = 2
	processor := New(settings, nil)

	result := processor.ProcessUpload(context.Background(), []UploadedFile{
		{Name: "occurrence.csv", Content: []byte(occurrenceCSV)},
	})

	assert.Len(t, result.ParsedData, 2)
	assert.Equal(t, 4, result.RowCount)
}
