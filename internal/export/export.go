// Package export writes aggregated records to output documents and
// optionally uploads them to S3.
package export

import (
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/postcode-cli/internal/model"
)

// Encoder renders records into one output document.
type Encoder func(w io.Writer, records []model.Record) error

type format struct {
	file   string
	encode Encoder
}

var formats = map[string]format{
	"json":    {file: "data.json", encode: EncodeJSON},
	"csv":     {file: "data.csv", encode: EncodeCSV},
	"xlsx":    {file: "data.xlsx", encode: EncodeXLSX},
	"geojson": {file: "data.geojson", encode: EncodeGeoJSON},
}

// Formats returns the supported format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FileName returns the output file name used for format.
func FileName(name string) (string, error) {
	f, ok := formats[name]
	if !ok {
		return "", eris.Errorf("export: unknown format %q", name)
	}
	return f.file, nil
}

// WriteFiles writes records to dir once per format and returns the written
// paths in format order. Every file is written to a temporary name first and
// renamed into place, so a failed run never leaves a truncated document.
func WriteFiles(dir string, names []string, records []model.Record) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		f, ok := formats[name]
		if !ok {
			return paths, eris.Errorf("export: unknown format %q", name)
		}

		path := filepath.Join(dir, f.file)
		if err := writeFileAtomic(path, func(w io.Writer) error {
			return f.encode(w, records)
		}); err != nil {
			return paths, eris.Wrapf(err, "export: write %s", name)
		}

		zap.L().Info("output written",
			zap.String("format", name),
			zap.String("path", path),
			zap.Int("records", len(records)),
		)
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFileAtomic(path string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "export: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := fn(tmp); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "export: close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return eris.Wrap(err, "export: chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrap(err, "export: rename temp file")
	}
	return nil
}
