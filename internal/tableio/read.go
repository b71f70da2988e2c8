package tableio

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
	"github.com/vk/wrangler/internal/table"
)

// Format names a table encoding.
type Format string

const (
	CSV  Format = "csv"
	TSV  Format = "tsv"
	JSON Format = "json"
)

// ErrUnsupportedFormat is returned for file extensions that are not tables.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Options tune reading of delimited text.
type Options struct {
	// Delimiter overrides the format's field separator.
	Delimiter string
	// MaxRows stops reading after that many data rows when positive.
	MaxRows int
}

// Open reads a table from path. The format comes from the extension, with an
// optional .gz, .bz2 or .xz suffix for compressed files.
func Open(path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.ToLower(path)
	r, err := decompress(f, filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if r != io.Reader(f) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	format, err := FormatOf(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t, err := Read(r, format, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

func decompress(f *os.File, ext string) (io.Reader, error) {
	switch ext {
	case ".gz":
		return gzip.NewReader(f)
	case ".bz2":
		return bzip2.NewReader(f, nil)
	case ".xz":
		return xz.NewReader(f)
	}
	return f, nil
}

// FormatOf maps a file name onto a Format.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return CSV, nil
	case ".tsv":
		return TSV, nil
	case ".json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

// Read decodes a table from r.
func Read(r io.Reader, format Format, opts Options) (*table.Table, error) {
	switch format {
	case CSV, TSV:
		delim := ','
		if format == TSV {
			delim = '\t'
		}
		if opts.Delimiter != "" {
			delim = []rune(opts.Delimiter)[0]
		}
		return readDelimited(r, delim, opts.MaxRows)
	case JSON:
		return readJSON(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func readDelimited(r io.Reader, delim rune, maxRows int) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return table.Empty(), nil
	}
	if err != nil {
		return nil, err
	}

	var rows [][]any
	for maxRows <= 0 || len(rows) < maxRows {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = table.Infer(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return table.New(header, rows)
}

// readJSON accepts either the table form {"columns":..,"rows":..} or an
// array of records. Record keys become columns in sorted order.
func readJSON(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var t table.Table
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return &t, nil
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var cols []string
	for _, rec := range records {
		for k := range rec {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	rows := make([]table.Row, len(records))
	for i, rec := range records {
		rows[i] = table.Row(rec)
	}
	return table.FromRecords(cols, rows), nil
}
