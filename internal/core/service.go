package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/contactimport/internal/config"
	"github.com/JonMunkholm/contactimport/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxFileSize is the upload ceiling applied when none is configured (10 MiB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// ImportResult is an outcome together with the metadata of the call that produced it.
type ImportResult struct {
	ID         string        `json:"id" yaml:"id" msgpack:"id"`
	FileName   string        `json:"file_name" yaml:"file_name" msgpack:"file_name"`
	Size       int64         `json:"size" yaml:"size" msgpack:"size"`
	Outcome    ImportOutcome `json:"outcome" yaml:"outcome" msgpack:"outcome"`
	DataRows   int           `json:"data_rows" yaml:"data_rows" msgpack:"data_rows"`
	Duration   time.Duration `json:"-" yaml:"-" msgpack:"-"`
	ImportedAt time.Time     `json:"imported_at" yaml:"imported_at" msgpack:"imported_at"`
}

// Service wraps the Importer with the host-level concerns of an import:
// size ceiling, concurrency limit, timeout and logging.
type Service struct {
	importer    *Importer
	limiter     *UploadLimiter
	maxFileSize int64
	timeout     time.Duration
}

// NewService creates a Service from the import configuration. The
// spreadsheet parser's inflated-size cap follows the upload ceiling unless
// opts replace the parser.
func NewService(cfg config.ImportConfig, opts ...ImporterOption) *Service {
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	opts = append([]ImporterOption{WithSpreadsheetParser(NewSpreadsheetParser(UnzipLimitFor(maxSize)))}, opts...)

	return &Service{
		importer:    NewImporter(opts...),
		limiter:     NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		maxFileSize: maxSize,
		timeout:     cfg.Timeout,
	}
}

// MaxFileSize returns the configured upload ceiling in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// ImportCustomers runs the import pipeline for one uploaded file.
//
// Bad input of any kind is reported in the returned outcome. An error is
// returned only when the import could not run: all slots busy
// (ErrTooManyImports) or ctx cancelled/expired. The result of an abandoned
// call is discarded.
func (s *Service) ImportCustomers(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{
		ID:         uuid.New().String(),
		FileName:   req.FileName,
		Size:       req.Size,
		ImportedAt: start.UTC(),
	}

	logger := logging.WithFields(ctx,
		"import_id", result.ID,
		"file_name", req.FileName,
		"size", req.Size,
	)

	if size := max(req.Size, int64(len(req.Data))); size > s.maxFileSize {
		result.Outcome = Failure(fmt.Sprintf("file too large: %d bytes exceeds the %d byte limit", size, s.maxFileSize))
		logger.Info("import rejected", "reason", "file too large")
		return result, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("import slot unavailable", "error", err)
		return nil, err
	}

	done := make(chan Report, 1)
	go func() {
		defer s.limiter.Release()
		done <- s.importer.Run(req)
	}()

	select {
	case report := <-done:
		result.Outcome = report.Outcome
		result.DataRows = report.DataRows
		result.Duration = time.Since(start)

		for _, a := range report.Attempts {
			if a.Err != nil {
				logger.Debug("parser attempt failed", "format", a.Format, "error", a.Err)
			}
		}

		logger.Info("import finished",
			"kind", result.Outcome.Kind,
			"format", result.Outcome.SourceFormat,
			"records", len(result.Outcome.Records),
			"row_errors", len(result.Outcome.Errors),
			"duration_ms", result.Duration.Milliseconds(),
		)
		return result, nil

	case <-ctx.Done():
		logger.Warn("import abandoned", "error", ctx.Err())
		return nil, fmt.Errorf("import %s: %w", result.ID, ctx.Err())
	}
}

// LimiterStatus returns the state of the import concurrency limiter.
func (s *Service) LimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
