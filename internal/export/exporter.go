package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"taskflow/internal/service"
)

var (
	// ErrNoContent is returned when there is no loaded task list to export.
	ErrNoContent = errors.New("nothing to export: task list is not loaded")

	// ErrExportInProgress is returned when an export is already running.
	ErrExportInProgress = errors.New("an export is already in progress")
)

// Source provides the task list to export.
type Source interface {
	Snapshot() ([]service.Task, bool)
}

type writerFunc func(io.Writer, []service.Task) error

var writers = map[Format]writerFunc{
	CSV:  WriteCSV,
	XLSX: WriteXLSX,
	PDF:  WritePDF,
}

// Exporter writes export files into a directory, one export at a time.
type Exporter struct {
	dir  string
	log  *log.Logger
	busy atomic.Bool
}

// New creates an Exporter writing into dir.
func New(dir string, lg *log.Logger) *Exporter {
	if lg == nil {
		lg = log.New(io.Discard, "", 0)
	}
	return &Exporter{dir: dir, log: lg}
}

// Export writes one file per format and returns their paths in order.
func (e *Exporter) Export(ctx context.Context, formats []Format, src Source) ([]string, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer e.busy.Store(false)

	tasks, ok := src.Snapshot()
	if !ok {
		return nil, ErrNoContent
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	for _, f := range formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		write, ok := writers[f]
		if !ok {
			return paths, fmt.Errorf("unknown export format: %s", f)
		}
		path := filepath.Join(e.dir, f.FileName())
		if err := writeAtomic(path, func(w io.Writer) error { return write(w, tasks) }); err != nil {
			return paths, fmt.Errorf("export %s: %w", f, err)
		}
		e.log.Printf("exported %d tasks to %s", len(tasks), path)
		paths = append(paths, path)
	}
	return paths, nil
}

// writeAtomic writes to a temporary file next to path and renames it into
// place, so path is either the old file or the complete new one.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
