// archive.go expands Darwin Core archives into their member files
package analysis

import (
	"archive/zip"
	"bytes"
	"io"
	"path"

	"github.com/obistack/occurrence-go/internal/errors"
)

// ExpandUpload turns one uploaded payload into the file set the pipeline
// consumes. Zip archives (Darwin Core archives) are expanded into their
// members, keyed by base name so occurrence files nested in folders are
// still found; anything else passes through as a single file.
func ExpandUpload(name string, content []byte) ([]UploadedFile, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		// Not a zip archive, treat it as a plain data file.
		return []UploadedFile{{Name: name, Content: content}}, nil
	}

	var files []UploadedFile
	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileIO).
				Component("analysis").
				Context("archive", name).
				Context("member", member.Name).
				Build()
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileIO).
				Component("analysis").
				Context("archive", name).
				Context("member", member.Name).
				Build()
		}

		files = append(files, UploadedFile{Name: path.Base(member.Name), Content: data})
	}
	return files, nil
}
