// upload.go handles occurrence data uploads, from multipart files or a URL
package api

import (
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/obistack/occurrence-go/internal/analysis"
)

// UploadResponse wraps the processing envelope with an upload id.
type UploadResponse struct {
	UploadID   string           `json:"upload_id"`
	Processing *analysis.Result `json:"processing"`
}

// Upload accepts occurrence data as multipart files or as a "url" form field
// pointing at a downloadable document, runs the analysis pipeline and
// replaces the current result set with the analyzed occurrences.
func (c *Controller) Upload(ctx echo.Context) error {
	files, err := c.collectUploadFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files or url provided")
	}

	uploadID := uuid.New().String()
	result := c.Processor.ProcessUpload(ctx.Request().Context(), files)

	if len(result.AnalyzedOccurrences) > 0 {
		c.SetRecords(result.AnalyzedOccurrences)
	}

	c.logger.Info("Upload processed",
		"upload_id", uploadID,
		"file_found", result.OccurrenceFileFound,
		"analyzed", result.AnalyzedCount)

	return ctx.JSON(http.StatusOK, UploadResponse{UploadID: uploadID, Processing: result})
}

// collectUploadFiles reads every multipart file, or fetches the url form
// field when no files were sent. Archives are expanded into their members.
func (c *Controller) collectUploadFiles(ctx echo.Context) ([]analysis.UploadedFile, error) {
	var files []analysis.UploadedFile

	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		for _, headers := range form.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file: "+header.Filename)
				}
				content, err := io.ReadAll(file)
				file.Close()
				if err != nil {
					return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file: "+header.Filename)
				}

				expanded, err := analysis.ExpandUpload(header.Filename, content)
				if err != nil {
					return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to expand archive: "+header.Filename)
				}
				files = append(files, expanded...)
			}
		}
	}

	if len(files) == 0 {
		if rawURL := ctx.FormValue("url"); rawURL != "" {
			fetched, err := c.fetchUpload(ctx, rawURL)
			if err != nil {
				return nil, err
			}
			files = fetched
		}
	}

	return files, nil
}

// fetchUpload downloads a document for url-form uploads.
func (c *Controller) fetchUpload(ctx echo.Context, rawURL string) ([]analysis.UploadedFile, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid url")
	}

	req, err := http.NewRequestWithContext(ctx.Request().Context(), http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid url")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Failed to fetch upload url", "url", rawURL, "error", err)
		return nil, echo.NewHTTPError(http.StatusBadGateway, "failed to fetch url")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, echo.NewHTTPError(http.StatusBadGateway, "url returned status "+resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadGateway, "failed to read url response")
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	return analysis.ExpandUpload(name, content)
}
