// Package api exposes the occurrence analysis and annotation workflow over
// HTTP using echo. The controller owns the current result set: every upload
// replaces it, and annotation edits and exports run against it.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/obistack/occurrence-go/internal/analysis"
	"github.com/obistack/occurrence-go/internal/annotation"
	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/logging"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo        *echo.Echo
	Group       *echo.Group
	Settings    *conf.Settings
	Processor   *analysis.Processor
	Annotations *annotation.Store

	// current result set, replaced wholesale by each upload
	resultsMutex sync.RWMutex
	records      []occurrence.Record

	httpClient *http.Client // fetches url-form uploads
	logger     *slog.Logger
}

// New creates the API controller and registers its routes under /api/v1.
func New(settings *conf.Settings, processor *analysis.Processor, annotations *annotation.Store) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:        e,
		Settings:    settings,
		Processor:   processor,
		Annotations: annotations,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logging.ForService("api"),
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.Health)
	c.Group.POST("/upload", c.Upload)
	c.Group.GET("/occurrences", c.Occurrences)
	c.Group.PATCH("/annotations/:key", c.EditAnnotation)
	c.Group.DELETE("/annotations", c.ClearAnnotations)
	c.Group.GET("/annotations/export", c.ExportAnnotations)
}

// Start runs the HTTP server until it fails or is shut down.
func (c *Controller) Start() error {
	address := fmt.Sprintf("%s:%s", c.Settings.Server.Host, c.Settings.Server.Port)
	c.logger.Info("Starting HTTP server", "address", address)
	return c.Echo.Start(address)
}

// Health reports service liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// SetRecords replaces the current result set.
func (c *Controller) SetRecords(records []occurrence.Record) {
	c.resultsMutex.Lock()
	defer c.resultsMutex.Unlock()
	c.records = records
}

// currentRecords returns the current result set without copying; callers
// must not mutate it.
func (c *Controller) currentRecords() []occurrence.Record {
	c.resultsMutex.RLock()
	defer c.resultsMutex.RUnlock()
	return c.records
}
