package datasets

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CSVOptions selects a window of a numeric CSV file. Row bounds count data
// rows after the header; a zero RowEnd or ColEnd means "to the end".
// Feature columns are [ColStart, ColEnd); LabelCol < 0 means no label.
type CSVOptions struct {
	Header   bool
	RowStart int
	RowEnd   int
	ColStart int
	ColEnd   int
	LabelCol int
}

// LoadCSV reads path with ReadCSV.
func LoadCSV(path string, opts CSVOptions) (*mat.Dense, *mat.VecDense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	X, y, err := ReadCSV(f, opts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", path)
	}
	return X, y, nil
}

// ReadCSV parses a numeric CSV stream into a feature matrix and, when
// LabelCol >= 0, a label vector.
func ReadCSV(r io.Reader, opts CSVOptions) (*mat.Dense, *mat.VecDense, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.ReuseRecord = true

	var (
		data   []float64
		labels []float64
		nCols  = -1
		row    = -1
	)

	if opts.Header {
		if _, err := reader.Read(); err != nil {
			return nil, nil, errors.Wrap(err, "read csv header")
		}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "read csv record")
		}
		row++
		if row < opts.RowStart {
			continue
		}
		if opts.RowEnd > 0 && row >= opts.RowEnd {
			break
		}

		end := opts.ColEnd
		if end == 0 || end > len(rec) {
			end = len(rec)
		}
		if opts.ColStart >= end {
			return nil, nil, errors.NewValidationError("col_start", "beyond the last column", opts.ColStart)
		}
		if nCols < 0 {
			nCols = end - opts.ColStart
		} else if end-opts.ColStart != nCols {
			return nil, nil, errors.NewDimensionError("ReadCSV", nCols, end-opts.ColStart, 1)
		}

		for j := opts.ColStart; j < end; j++ {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "row %d column %d", row, j)
			}
			data = append(data, v)
		}

		if opts.LabelCol >= 0 {
			if opts.LabelCol >= len(rec) {
				return nil, nil, errors.NewValidationError("label_col", "beyond the last column", opts.LabelCol)
			}
			v, err := strconv.ParseFloat(rec[opts.LabelCol], 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "row %d label", row)
			}
			labels = append(labels, v)
		}
	}

	if len(data) == 0 {
		return nil, nil, errors.ErrEmptyData
	}
	X := mat.NewDense(len(data)/nCols, nCols, data)
	if opts.LabelCol < 0 {
		return X, nil, nil
	}
	return X, mat.NewVecDense(len(labels), labels), nil
}

// BinarizeLabels maps positive to +1 and everything else to -1.
func BinarizeLabels(y mat.Vector, positive float64) *mat.VecDense {
	out := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		if y.AtVec(i) == positive {
			out.SetVec(i, 1)
		} else {
			out.SetVec(i, -1)
		}
	}
	return out
}
