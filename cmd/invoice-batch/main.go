package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/construpro/internal/async"
	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core"
	coreasync "github.com/joseph-ayodele/construpro/internal/core/async"
	"github.com/joseph-ayodele/construpro/internal/core/extract"
	"github.com/joseph-ayodele/construpro/internal/core/pdftext"
	"github.com/joseph-ayodele/construpro/internal/export"
	"github.com/joseph-ayodele/construpro/internal/ingest"
	repo "github.com/joseph-ayodele/construpro/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type summary struct {
	mu        sync.Mutex
	processed int
	failures  int
	jobs      int
	review    int
	written   []string
}

func main() {
	var (
		inmem     = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir       = flag.String("dir", "", "directory to process invoices from (required)")
		out       = flag.String("out", "", "output directory for BoQ workbooks (optional, defaults to <dir>/boq)")
		createJob = flag.Bool("jobs", true, "create a job for every invoice with a project title and client")
		hidden    = flag.Bool("hidden", false, "include hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*dir, "boq")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		printError("Error: create output directory: %v\n", err)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = "file:construpro?mode=memory&cache=shared"
	}
	logger := common.NewLogger(os.Stdout, cfg.Log, true)

	ctx := context.Background()

	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	loader, err := pdftext.New(cfg.Extraction, logger)
	if err != nil {
		logger.Error("failed to build document loader", "error", err)
		os.Exit(1)
	}
	opts, err := extract.OptionsFromConfig(cfg.Extraction)
	if err != nil {
		logger.Error("failed to load extraction tables", "error", err)
		os.Exit(1)
	}

	filesRepo := repo.NewFileHistoryRepository(db, cfg.History.Keep, logger)
	jobsRepo := repo.NewJobRepository(db, logger)
	processor := core.NewProcessor(logger, extract.NewExtractor(loader, opts, logger), filesRepo, jobsRepo)

	var sum summary
	handle := func(job async.Job, res core.Outcome, err error) {
		sum.mu.Lock()
		defer sum.mu.Unlock()
		if err != nil {
			sum.failures++
			return
		}
		sum.processed++
		if res.Job != nil {
			sum.jobs++
		}
		if res.NeedsReview {
			sum.review++
			logger.Warn("invoice needs review", "name", job.Upload.Name, "warnings", res.Warnings)
		}
		xlsx, err := export.ExportBoQXLSX(res.Record)
		if err != nil {
			logger.Error("export.xlsx.failed", "name", job.Upload.Name, "error", err)
			sum.failures++
			return
		}
		path := filepath.Join(*out, strings.TrimSuffix(job.Upload.Name, filepath.Ext(job.Upload.Name))+".xlsx")
		if err := os.WriteFile(path, xlsx, 0o644); err != nil {
			logger.Error("failed to write output file", "path", path, "error", err)
			sum.failures++
			return
		}
		sum.written = append(sum.written, path)
	}

	queue := coreasync.NewProcessorQueue(processor, logger,
		append(coreasync.FromConfig(cfg.Queue), coreasync.WithResultHandler(handle))...,
	)

	start := time.Now()
	logger.Info("starting batch", "dir", *dir, "out", *out)
	results, stats, err := ingest.ScanDirectory(ctx, *dir, ingest.Options{SkipHidden: !*hidden, MaxBytes: cfg.Server.MaxUploadBytes},
		func(ctx context.Context, path string, data []byte) error {
			return queue.Enqueue(ctx, async.NewJob(core.Upload{Name: filepath.Base(path), Data: data, CreateJob: *createJob}))
		})
	queue.Shutdown(context.Background())
	if err != nil {
		logger.Error("failed to scan directory", "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("file skipped", "path", r.Path, "error", r.Err)
		}
	}

	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"queued", stats.Succeeded,
		"processed", sum.processed,
		"jobs_created", sum.jobs,
		"needs_review", sum.review,
		"failures", sum.failures+int(stats.Failed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files queued: %d\n", stats.Succeeded)
	fmt.Printf("- Files processed: %d\n", sum.processed)
	fmt.Printf("- Jobs created: %d\n", sum.jobs)
	fmt.Printf("- Needing review: %d\n", sum.review)
	fmt.Printf("- Failures: %d\n", sum.failures+int(stats.Failed))
	fmt.Printf("- Output: %s (%d workbooks)\n", *out, len(sum.written))
}
