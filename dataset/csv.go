package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// ReadCSV parses a CSV table whose first record is the header.
// Every cell must parse as a finite float64; empty, non-numeric, NaN and
// infinite cells are rejected with a SchemaError naming the column and the 1-based data row.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]float64
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv row %d", line)
		}

		row := make([]float64, len(record))
		for j, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				return nil, errors.NewSchemaError(header[j], fmt.Sprintf("empty value in row %d", line))
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.NewSchemaError(header[j], fmt.Sprintf("non-numeric value %q in row %d", cell, line))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewSchemaError(header[j], fmt.Sprintf("missing or infinite value %q in row %d", cell, line))
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	return NewFrame(header, rows)
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	frame, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load dataset %s", path)
	}
	return frame, nil
}
