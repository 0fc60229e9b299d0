// Package writer encodes LD reports and delivers them to stdout, a file or S3.
package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"ldexplorer/config"
	"ldexplorer/internal/metrics"
	"ldexplorer/logger"
	"ldexplorer/models"
)

const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatParquet = "parquet"

	DestinationStdout = "stdout"
	DestinationFile   = "file"
	DestinationS3     = "s3"
)

// Meta identifies the run a report belongs to.
type Meta struct {
	RunID      string
	Phenotype  string
	Population string
}

type uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte, meta map[string]string) (string, error)
}

// Encode renders report in format. Compression only applies to parquet.
func Encode(report models.LDReport, format, compression string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatCSV:
		data, err := EncodeCSV(report)
		if err != nil {
			return nil, fmt.Errorf("encode csv: %w", err)
		}
		return data, nil
	case FormatParquet:
		return EncodeParquet(report, compression)
	}
	return nil, fmt.Errorf("%w: unknown output format %q", models.ErrInvalidInput, format)
}

func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatParquet:
		return "application/octet-stream"
	}
	return "application/json"
}

// Writer delivers encoded reports to one destination.
type Writer struct {
	format      string
	compression string
	path        string
	prefix      string
	stdout      io.Writer
	s3          uploader
	log         *logger.Log
}

// New picks S3 when storage.s3 is enabled, otherwise output.path, otherwise
// stdout.
func New(ctx context.Context, cfg *config.Config) (*Writer, error) {
	w := &Writer{
		format:      cfg.Output.Format,
		compression: cfg.Output.Compression,
		path:        cfg.Output.Path,
		prefix:      cfg.Storage.S3.Prefix,
		stdout:      os.Stdout,
		log:         logger.GetLogger(),
	}
	if w.format == "" {
		w.format = FormatJSON
	}
	if cfg.Storage.S3.Enabled {
		up, err := NewS3Uploader(ctx, cfg.Storage.S3, cfg.LDExplorer.Version)
		if err != nil {
			return nil, err
		}
		w.s3 = up
	}
	return w, nil
}

func (w *Writer) destination() string {
	switch {
	case w.s3 != nil:
		return DestinationS3
	case w.path != "":
		return DestinationFile
	}
	return DestinationStdout
}

// Write encodes report and returns where it was written.
func (w *Writer) Write(ctx context.Context, report models.LDReport, meta Meta) (string, error) {
	start := time.Now()
	dest := w.destination()
	log := w.log.WithComponent("report_writer").WithFields(logger.Fields{
		"run_id":      meta.RunID,
		"format":      w.format,
		"destination": dest,
	})

	data, err := Encode(report, w.format, w.compression)
	if err != nil {
		return "", err
	}

	var location string
	switch dest {
	case DestinationS3:
		key := ObjectKey(w.prefix, meta, w.format)
		location, err = w.s3.Upload(ctx, key, ContentType(w.format), data, map[string]string{
			"format":     w.format,
			"population": meta.Population,
		})
	case DestinationFile:
		location, err = w.path, writeFile(w.path, data)
	default:
		location = DestinationStdout
		_, err = w.stdout.Write(data)
	}
	if err != nil {
		return "", fmt.Errorf("write report to %s: %w", dest, err)
	}

	metrics.IncrementReportWritten(w.format, dest)
	logger.LogPerformanceEntry(log, "report_writer", "write", time.Since(start), logger.Fields{
		"bytes":    len(data),
		"entries":  len(report),
		"location": location,
	})
	return location, nil
}

func writeFile(name string, data []byte) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(name, data, 0o644)
}

// ObjectKey builds <prefix>/<phenotype-slug>/<population>/<run-id>.<ext>.
func ObjectKey(prefix string, meta Meta, format string) string {
	if format == "" {
		format = FormatJSON
	}
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, Slug(meta.Phenotype), meta.Population, meta.RunID+"."+format)
	return path.Join(parts...)
}

// Slug lowercases s and collapses every run of non-alphanumerics to "-".
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
