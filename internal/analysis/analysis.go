// Package analysis runs the upload processing pipeline: locate the
// occurrence file in an upload, parse it, filter to species rows, extract
// unique occurrences, normalize their AphiaIDs and score them.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/logging"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// UploadedFile is one file of an upload, already read into memory.
type UploadedFile struct {
	Name    string
	Content []byte
}

// Normalizer rewrites AphiaIDs to their accepted values. It is an interface
// so the pipeline can run without a WoRMS client.
type Normalizer interface {
	NormalizeOccurrences(ctx context.Context, records []occurrence.Record) error
}

// Result is the processing envelope returned for every upload. Parse
// failures land in Error, column and analysis failures in AnalysisError;
// neither aborts processing, later stages are simply skipped.
type Result struct {
	OccurrenceFileFound     bool                `json:"occurrence_file_found"`
	OccurrenceFilename      string              `json:"occurrence_filename,omitempty"`
	ParsedData              []map[string]string `json:"parsed_data,omitempty"`
	RowCount                int                 `json:"row_count"`
	ColumnCount             int                 `json:"column_count"`
	Columns                 []string            `json:"columns,omitempty"`
	DetectedDelimiter       string              `json:"detected_delimiter,omitempty"`
	FilteredRowCount        int                 `json:"filtered_row_count"`
	OriginalOccurrenceCount int                 `json:"original_occurrence_count"`
	UniqueOccurrenceCount   int                 `json:"unique_occurrence_count"`
	AnalyzedOccurrences     []occurrence.Record `json:"analyzed_occurrences,omitempty"`
	AnalyzedCount           int                 `json:"analyzed_count"`
	AnalysisError           string              `json:"analysis_error,omitempty"`
	Error                   string              `json:"error,omitempty"`
}

// Processor runs upload analysis with the configured settings.
type Processor struct {
	settings   *conf.Settings
	normalizer Normalizer
	log        *slog.Logger
}

// New creates a processor. A nil normalizer disables taxon normalization.
func New(settings *conf.Settings, normalizer Normalizer) *Processor {
	return &Processor{
		settings:   settings,
		normalizer: normalizer,
		log:        logging.ForService("analysis"),
	}
}

// ProcessUpload analyzes an uploaded file set and returns the processing
// envelope. It never returns an error; failures are reported inside the
// envelope so the client always gets the stages that did complete.
func (p *Processor) ProcessUpload(ctx context.Context, files []UploadedFile) *Result {
	result := &Result{}

	names := make([]string, len(files))
	for i := range files {
		names[i] = files[i].Name
	}

	filename := occurrence.FindOccurrenceFile(names)
	if filename == "" {
		result.Error = "no occurrence file found in upload"
		p.log.Warn("Upload contained no occurrence file", "files", names)
		return result
	}
	result.OccurrenceFileFound = true
	result.OccurrenceFilename = filename

	parsed, err := occurrence.ParseSeparatedFile(contentOf(files, filename), 0)
	if err != nil {
		result.Error = err.Error()
		p.log.Error("Failed to parse occurrence file", "file", filename, "error", err)
		return result
	}

	result.RowCount = len(parsed.Rows)
	result.ColumnCount = len(parsed.Columns)
	result.Columns = parsed.Columns
	result.DetectedDelimiter = delimiterName(parsed.Delimiter)
	result.ParsedData = previewRows(parsed.Rows, p.settings.Analysis.PreviewRows)

	filtered := occurrence.FilterByTaxonRank(parsed.Rows, p.settings.Analysis.TaxonRank)
	result.FilteredRowCount = len(filtered)
	result.OriginalOccurrenceCount = len(filtered)

	records, err := occurrence.ExtractSpecies(filtered, p.settings.Analysis.CoordinatePrecision)
	if err != nil {
		result.AnalysisError = err.Error()
		p.log.Error("Species extraction failed", "file", filename, "error", err)
		return result
	}
	result.UniqueOccurrenceCount = len(records)

	if p.normalizer != nil && len(records) > 0 {
		if err := p.normalizer.NormalizeOccurrences(ctx, records); err != nil {
			// Normalization is best effort, keep the unnormalized IDs.
			result.AnalysisError = fmt.Sprintf("taxon normalization failed: %v", err)
			p.log.Warn("Taxon normalization failed", "error", err)
		}
	}

	occurrence.ScoreDensity(records, filtered, p.settings.Analysis.CoordinatePrecision)
	records = occurrence.RankByDensity(records)

	result.AnalyzedOccurrences = records
	result.AnalyzedCount = len(records)

	p.log.Info("Upload analyzed",
		"file", filename,
		"rows", result.RowCount,
		"filtered_rows", result.FilteredRowCount,
		"unique_occurrences", result.UniqueOccurrenceCount)

	return result
}

// contentOf returns the payload of the named upload file.
func contentOf(files []UploadedFile, name string) []byte {
	for i := range files {
		if files[i].Name == name {
			return files[i].Content
		}
	}
	return nil
}

// previewRows returns the first n parsed rows for the response preview.
func previewRows(rows []map[string]string, n int) []map[string]string {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// delimiterName renders a delimiter rune for the envelope as the literal
// character.
func delimiterName(delimiter rune) string {
	if delimiter == 0 {
		return ""
	}
	return string(delimiter)
}
