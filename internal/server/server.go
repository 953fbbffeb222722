// =============================================================================
// Journal CSV Converter - HTTP Server
// =============================================================================
//
// A thin JSON shell over the converter for a single session: upload a
// workbook, pick a sheet, convert it, edit rows of the working copy, and
// download the Shift_JIS export.
//
// ROUTES:
//   POST   /api/upload               multipart "file"; returns the sheets
//   POST   /api/convert              {"sheet": "..."}; runs the pipeline
//   GET    /api/journal              working copy, totals, findings
//   POST   /api/journal/rows         append a row
//   PUT    /api/journal/rows/:index  update fields of a row
//   DELETE /api/journal/rows/:index  delete a row
//   POST   /api/journal/commit       finish editing
//   GET    /api/export               download (?strict=true refuses errors)
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"github.com/ginjaninja78/journal-csv-converter/internal/converter"
	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"github.com/ginjaninja78/journal-csv-converter/internal/xlsxparser"
	"go.uber.org/zap"
)

// Server is the HTTP server for one session.
type Server struct {
	router    *gin.Engine
	config    *config.MainConfig
	converter *converter.Converter
	logger    *zap.Logger

	upload   *uploadedFile
	uploadMu sync.RWMutex
}

type uploadedFile struct {
	FileName string
	Tables   []*source.Table
	Sheets   []xlsxparser.SheetInfo
}

// New creates the server and its routes.
func New(cfg *config.MainConfig, conv *converter.Converter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:    gin.New(),
		config:    cfg,
		converter: conv,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), requestLogger(s.logger))
	s.router.MaxMultipartMemory = int64(s.config.Server.MaxUploadMB) << 20

	api := s.router.Group("/api")
	{
		api.POST("/upload", s.Upload)
		api.POST("/convert", s.Convert)
		api.GET("/journal", s.GetJournal)
		api.POST("/journal/rows", s.InsertRow)
		api.PUT("/journal/rows/:index", s.UpdateRow)
		api.DELETE("/journal/rows/:index", s.DeleteRow)
		api.POST("/journal/commit", s.Commit)
		api.GET("/export", s.Export)
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
