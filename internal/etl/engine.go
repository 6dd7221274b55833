// Package etl implements the conforming load pipeline: normalize source
// rows, conform dimensions, resolve surrogate keys, and insert facts, all
// inside one storage transaction per run.
package etl

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"salesdw/internal/metrics"
	"salesdw/internal/parser/csv"
	"salesdw/internal/parser/xlsx"
	"salesdw/internal/storage"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Engine runs conforming loads against a warehouse repository.
//
// One Run is one transaction: dimension inserts and fact inserts commit
// together or not at all, so a failed run leaves no orphan members.
type Engine struct {
	Repo   storage.Repository
	Logger Logger

	// Metrics receives per-run counters and timings. Nil means no metrics.
	Metrics metrics.Backend

	// CSV configures delimited-file parsing for LoadFile.
	CSV csv.Options
}

// Result reports the outcome of one pipeline run.
type Result struct {
	Message       string `json:"message"`
	RowsProcessed int    `json:"rows_processed"`
	RowsInserted  int    `json:"rows_inserted"`
}

// LoadFile parses a source file by extension (.csv, .xlsx, .xls),
// normalizes it, and runs the pipeline on the result.
func (e *Engine) LoadFile(ctx context.Context, path string) (Result, error) {
	var (
		header []string
		raw    [][]string
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		header, raw, err = csv.ReadFile(path, e.CSV)
	case ".xlsx", ".xls":
		header, raw, err = xlsx.ReadFile(path, xlsx.Options{HeaderMap: e.CSV.HeaderMap})
	default:
		return Result{}, fmt.Errorf("etl: unsupported file extension %q", ext)
	}
	if err != nil {
		return Result{}, err
	}

	rows, err := Normalize(Table{Header: header, Rows: raw})
	if err != nil {
		return Result{}, err
	}
	return e.Process(ctx, rows)
}

// Process runs the conform/resolve/load stages over normalized rows.
//
// Edge cases:
//   - An empty batch commits an empty transaction and reports zero rows.
//   - Rows whose sale_id is already in the warehouse (or earlier in the
//     batch) are counted as processed but not inserted.
func (e *Engine) Process(ctx context.Context, rows []Row) (Result, error) {
	if e.Repo == nil {
		return Result{}, fmt.Errorf("etl: Repo is required")
	}

	logf := e.logger()
	runStart := time.Now()

	tx, err := e.Repo.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	conformStart := time.Now()
	if err := conformDimensions(ctx, tx, rows); err != nil {
		return Result{}, err
	}
	logf("stage=conform_dims ok duration=%s", durMS(conformStart))

	resolveStart := time.Now()
	res, err := buildResolver(ctx, tx)
	if err != nil {
		return Result{}, err
	}
	logf("stage=build_resolver ok duration=%s", durMS(resolveStart))

	loadStart := time.Now()
	inserted, err := loadFacts(ctx, tx, res, rows)
	if err != nil {
		return Result{}, err
	}
	logf("stage=load_facts ok duration=%s inserted=%d", durMS(loadStart), inserted)

	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	committed = true

	logf("stage=run ok duration=%s rows=%d inserted=%d", durMS(runStart), len(rows), inserted)
	e.observe(len(rows), inserted, time.Since(runStart))

	return Result{
		Message:       "Success",
		RowsProcessed: len(rows),
		RowsInserted:  inserted,
	}, nil
}

func (e *Engine) observe(processed, inserted int, dur time.Duration) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.IncCounter("salesdw.etl.rows_processed", float64(processed))
	e.Metrics.IncCounter("salesdw.etl.rows_inserted", float64(inserted))
	e.Metrics.ObserveHistogram("salesdw.etl.run_seconds", dur.Seconds())
}

func (e *Engine) logger() func(format string, v ...any) {
	if e.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return e.Logger.Printf
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }
