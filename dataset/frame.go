// Package dataset holds the rectangular, all-numeric table the pipeline trains on.
//
// A Frame is a set of named float64 columns over the same rows. Values are stored
// row-major in a gonum matrix so that feature extraction is a copy, not a conversion.
package dataset

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// Frame is an immutable table of named numeric columns.
type Frame struct {
	columns []string
	index   map[string]int
	data    *mat.Dense
}

// ColumnSummary holds per-column statistics returned by Describe.
type ColumnSummary struct {
	Name  string
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// NewFrame builds a Frame from column names and row values.
// Every row must have one value per column and column names must be unique.
func NewFrame(columns []string, rows [][]float64) (*Frame, error) {
	if len(columns) == 0 {
		return nil, errors.NewSchemaError("", "frame has no columns")
	}
	data := make([]float64, 0, len(rows)*len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.NewDimensionError("NewFrame", len(columns), len(row), 1)
		}
		data = append(data, row...)
	}
	var m *mat.Dense
	if len(rows) > 0 {
		m = mat.NewDense(len(rows), len(columns), data)
	}
	return newFrame(columns, m)
}

// FromMatrix wraps m as a Frame. m is not copied.
func FromMatrix(columns []string, m *mat.Dense) (*Frame, error) {
	if m != nil {
		if _, c := m.Dims(); c != len(columns) {
			return nil, errors.NewDimensionError("FromMatrix", len(columns), c, 1)
		}
	}
	return newFrame(columns, m)
}

func newFrame(columns []string, m *mat.Dense) (*Frame, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, errors.NewSchemaError(name, "duplicate column name")
		}
		index[name] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{columns: cols, index: index, data: m}, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// NRows returns the number of rows.
func (f *Frame) NRows() int {
	if f.data == nil {
		return 0
	}
	r, _ := f.data.Dims()
	return r
}

// NCols returns the number of columns.
func (f *Frame) NCols() int {
	return len(f.columns)
}

// HasColumn reports whether the frame has a column called name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) (*mat.VecDense, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.NewSchemaError(name, "column not found")
	}
	if f.NRows() == 0 {
		return &mat.VecDense{}, nil
	}
	return mat.NewVecDense(f.NRows(), mat.Col(nil, j, f.data)), nil
}

// Drop returns a new Frame without the named column.
func (f *Frame) Drop(name string) (*Frame, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.NewSchemaError(name, "column not found")
	}

	columns := make([]string, 0, len(f.columns)-1)
	columns = append(columns, f.columns[:j]...)
	columns = append(columns, f.columns[j+1:]...)
	if len(columns) == 0 {
		return nil, errors.NewSchemaError(name, "dropping the only column leaves no features")
	}

	n := f.NRows()
	if n == 0 {
		return newFrame(columns, nil)
	}
	m := mat.NewDense(n, len(columns), nil)
	for i := 0; i < n; i++ {
		dst := 0
		for k := range f.columns {
			if k == j {
				continue
			}
			m.Set(i, dst, f.data.At(i, k))
			dst++
		}
	}
	return newFrame(columns, m)
}

// Matrix returns a copy of the frame's values as an NRows × NCols matrix.
// It returns an empty matrix when the frame has no rows.
func (f *Frame) Matrix() *mat.Dense {
	if f.data == nil {
		return &mat.Dense{}
	}
	return mat.DenseCopyOf(f.data)
}

// Describe returns count, mean, sample standard deviation, min and max for each column.
func (f *Frame) Describe() []ColumnSummary {
	n := f.NRows()
	out := make([]ColumnSummary, len(f.columns))
	for j, name := range f.columns {
		out[j] = ColumnSummary{Name: name, Count: n, Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
		if n == 0 {
			continue
		}
		col := mat.Col(nil, j, f.data)
		out[j].Mean, out[j].Std = stat.MeanStdDev(col, nil)
		out[j].Min = floats.Min(col)
		out[j].Max = floats.Max(col)
	}
	return out
}
