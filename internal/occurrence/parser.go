// parser.go handles decoding of uploaded separated text files (CSV/TSV)
package occurrence

import (
	"encoding/csv"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/obistack/occurrence-go/internal/errors"
)

// delimiterSampleSize is how many bytes of the file are inspected when
// sniffing the delimiter.
const delimiterSampleSize = 100

// occurrenceFilePattern matches Darwin Core archive occurrence file names,
// e.g. occurrence.txt, Occurrence.csv, occ.tsv.
var occurrenceFilePattern = regexp.MustCompile(`(?i)^(occurrence|occ)\..*$`)

// FindOccurrenceFile returns the first file name matching the occurrence
// pattern, or an empty string if none matches.
func FindOccurrenceFile(filenames []string) string {
	for _, filename := range filenames {
		if occurrenceFilePattern.MatchString(filename) {
			return filename
		}
	}
	return ""
}

// decodeText converts raw file bytes to a string, assuming UTF-8 and falling
// back to Latin-1 for legacy exports. Latin-1 decoding cannot fail, so this
// is total.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		// Unreachable for ISO 8859-1, but keep the UTF-8 interpretation as a
		// final fallback rather than dropping the upload.
		return string(content)
	}
	return string(decoded)
}

// DetectDelimiter sniffs whether the content is comma or tab separated by
// inspecting a small sample, preferring tab when both occur (a tab separated
// header with commas inside values is common, the reverse is not).
func DetectDelimiter(content []byte) (rune, error) {
	text := decodeText(content)
	if len(text) > delimiterSampleSize {
		text = text[:delimiterSampleSize]
	}

	// Restrict the sample to the first line when one fits inside it; the
	// header is the most reliable place to sniff.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}

	switch {
	case strings.ContainsRune(text, '\t'):
		return '\t', nil
	case strings.ContainsRune(text, ','):
		return ',', nil
	default:
		return 0, errors.Newf("could not detect delimiter (comma or tab) in file").
			Category(errors.CategoryFileParsing).
			Component("occurrence").
			Build()
	}
}

// ParsedFile holds a decoded separated text file: the header columns in file
// order, one string map per data row, and the delimiter used.
type ParsedFile struct {
	Columns   []string
	Rows      []map[string]string
	Delimiter rune
}

// ParseSeparatedFile parses separated text content into a ParsedFile. A zero
// delimiter means auto-detect. Values are whitespace-trimmed; rows shorter
// than the header get empty strings for the missing columns.
func ParseSeparatedFile(content []byte, delimiter rune) (*ParsedFile, error) {
	if delimiter == 0 {
		detected, err := DetectDelimiter(content)
		if err != nil {
			return nil, err
		}
		delimiter = detected
	}

	reader := csv.NewReader(strings.NewReader(decodeText(content)))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return &ParsedFile{Rows: []map[string]string{}, Delimiter: delimiter}, nil
		}
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Component("occurrence").
			Context("operation", "read-header").
			Build()
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileParsing).
				Component("occurrence").
				Context("operation", "read-row").
				Context("row", len(rows)+1).
				Build()
		}

		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(fields) {
				row[column] = strings.TrimSpace(fields[i])
			} else {
				row[column] = ""
			}
		}
		rows = append(rows, row)
	}

	return &ParsedFile{Columns: header, Rows: rows, Delimiter: delimiter}, nil
}
