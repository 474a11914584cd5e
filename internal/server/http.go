package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core"
	"github.com/joseph-ayodele/construpro/internal/export"
	"github.com/joseph-ayodele/construpro/internal/repository"
)

const (
	requestIDHeader = "X-Request-ID"
	xlsxMimeType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	healthTimeout   = 2 * time.Second
)

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// HTTPDeps are the collaborators of the HTTP API. Files, Jobs, Export and
// Health may be nil; their routes then answer 503.
type HTTPDeps struct {
	Processor      UploadProcessor
	Files          repository.FileHistoryRepository
	Jobs           repository.JobRepository
	Export         *export.Service
	Health         HealthChecker
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type httpAPI struct {
	HTTPDeps
}

// NewHTTPHandler builds the gin engine serving the browser upload API.
func NewHTTPHandler(deps HTTPDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 25 << 20
	}
	api := &httpAPI{HTTPDeps: deps}

	r := gin.New()
	r.Use(gin.Recovery(), api.requestContext)
	r.MaxMultipartMemory = deps.MaxUploadBytes

	r.GET("/healthz", api.health)

	g := r.Group("/api")
	g.POST("/invoices/extract", api.extractInvoice)
	g.POST("/invoices/export", api.exportInvoice)
	g.GET("/jobs", api.listJobs)
	g.GET("/jobs/:id", api.getJob)
	g.GET("/jobs/:id/files", api.listFiles)
	g.GET("/jobs/:id/files/:file_id", api.downloadFile)
	g.GET("/export/jobs", api.exportJobs)
	return r
}

// requestContext tags the request with an id and logs its outcome.
func (a *httpAPI) requestContext(c *gin.Context) {
	start := time.Now()
	reqID := c.GetHeader(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), reqID))
	c.Header(requestIDHeader, reqID)

	c.Next()

	a.Logger.Info("http request",
		"request_id", reqID,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func (a *httpAPI) fail(c *gin.Context, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		a.Logger.Error("http request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(code, gin.H{"error": errorCode(err), "message": "internal error"})
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": errorCode(err), "message": err.Error()})
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "UNAVAILABLE", "message": what + " is not configured"})
}

func (a *httpAPI) health(c *gin.Context) {
	if a.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	if err := a.Health.HealthCheck(c.Request.Context(), healthTimeout); err != nil {
		a.Logger.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readUpload reads the multipart "file" field, bounded by MaxUploadBytes.
func (a *httpAPI) readUpload(c *gin.Context) (core.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return core.Upload{}, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds %d bytes", a.MaxUploadBytes), common.ErrInvalidInput)
	}
	if err != nil {
		return core.Upload{}, common.NewAppError("MISSING_FILE", "multipart field \"file\" is required", common.ErrInvalidInput)
	}
	if fh.Size > a.MaxUploadBytes {
		return core.Upload{}, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds %d bytes", a.MaxUploadBytes), common.ErrInvalidInput)
	}
	f, err := fh.Open()
	if err != nil {
		return core.Upload{}, common.WrapError(err, "open upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return core.Upload{}, common.WrapError(err, "read upload")
	}
	createJob, _ := strconv.ParseBool(c.PostForm("create_job"))
	return core.Upload{Name: fh.Filename, Data: data, CreateJob: createJob}, nil
}

func (a *httpAPI) extractInvoice(c *gin.Context) {
	up, err := a.readUpload(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	out, err := a.Processor.ProcessUpload(c.Request.Context(), up)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *httpAPI) exportInvoice(c *gin.Context) {
	up, err := a.readUpload(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	up.ExtractOnly = true
	out, err := a.Processor.ProcessUpload(c.Request.Context(), up)
	if err != nil {
		a.fail(c, err)
		return
	}
	xlsx, err := export.ExportBoQXLSX(out.Record)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "boq.xlsx"))
	c.Data(http.StatusOK, xlsxMimeType, xlsx)
}

func (a *httpAPI) listJobs(c *gin.Context) {
	if a.Jobs == nil {
		unavailable(c, "job store")
		return
	}
	jobs, err := a.Jobs.List(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (a *httpAPI) getJob(c *gin.Context) {
	if a.Jobs == nil {
		unavailable(c, "job store")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		a.fail(c, common.NewAppError("INVALID_ID", "job id must be a UUID", common.ErrInvalidInput))
		return
	}
	job, err := a.Jobs.Get(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (a *httpAPI) listFiles(c *gin.Context) {
	if a.Files == nil {
		unavailable(c, "file history")
		return
	}
	files, err := a.Files.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (a *httpAPI) downloadFile(c *gin.Context) {
	if a.Files == nil {
		unavailable(c, "file history")
		return
	}
	id, err := uuid.Parse(c.Param("file_id"))
	if err != nil {
		a.fail(c, common.NewAppError("INVALID_ID", "file id must be a UUID", common.ErrInvalidInput))
		return
	}
	entry, err := a.Files.Get(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.Name))
	c.Data(http.StatusOK, entry.MimeType, entry.Data)
}

func (a *httpAPI) exportJobs(c *gin.Context) {
	if a.Export == nil {
		unavailable(c, "export")
		return
	}
	xlsx, err := a.Export.ExportJobsXLSX(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "jobs.xlsx"))
	c.Data(http.StatusOK, xlsxMimeType, xlsx)
}
