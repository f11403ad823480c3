// Package performance provides file-backed matrices that are memory mapped
// instead of decoded, so large cached datasets open without a full read.
package performance

import (
	"encoding/binary"
	"math"
	"os"
	"sync"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DataType is the on-disk width of one element.
type DataType int

const (
	Float64 DataType = iota
	Float32
)

// ElementSize returns the number of bytes one element occupies.
func (d DataType) ElementSize() int {
	if d == Float32 {
		return 4
	}
	return 8
}

func (d DataType) String() string {
	if d == Float32 {
		return "float32"
	}
	return "float64"
}

// MemoryMappedDataset is a rows×cols row-major matrix stored little endian
// in a file and accessed through a memory map.
type MemoryMappedDataset struct {
	file     *os.File
	mmap     []byte
	shape    [2]int
	dtype    DataType
	readOnly bool
	mu       sync.RWMutex
}

// CreateMemoryMappedDataset creates (or truncates) filename to hold a
// rows×cols matrix and maps it for writing.
func CreateMemoryMappedDataset(filename string, rows, cols int, dtype DataType) (*MemoryMappedDataset, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.NewValidationError("shape", "rows and cols must be positive", [2]int{rows, cols})
	}
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	size := rows * cols * dtype.ElementSize()
	if err := file.Truncate(int64(size)); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to resize file")
	}

	buf, err := mapFile(file, size, true)
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to mmap")
	}

	return &MemoryMappedDataset{
		file:  file,
		mmap:  buf,
		shape: [2]int{rows, cols},
		dtype: dtype,
	}, nil
}

// OpenMemoryMappedDataset maps an existing file read-only. The file size
// must match rows×cols elements of dtype exactly.
func OpenMemoryMappedDataset(filename string, rows, cols int, dtype DataType) (*MemoryMappedDataset, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.NewValidationError("shape", "rows and cols must be positive", [2]int{rows, cols})
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to stat file")
	}
	size := rows * cols * dtype.ElementSize()
	if info.Size() != int64(size) {
		_ = file.Close()
		return nil, errors.Newf("%s holds %d bytes, want %d for %dx%d %s",
			filename, info.Size(), size, rows, cols, dtype)
	}

	buf, err := mapFile(file, size, false)
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to mmap")
	}

	return &MemoryMappedDataset{
		file:     file,
		mmap:     buf,
		shape:    [2]int{rows, cols},
		dtype:    dtype,
		readOnly: true,
	}, nil
}

// Dims returns the matrix shape.
func (m *MemoryMappedDataset) Dims() (int, int) { return m.shape[0], m.shape[1] }

// DType returns the on-disk element width.
func (m *MemoryMappedDataset) DType() DataType { return m.dtype }

// GetChunk copies rows [startRow, endRow) into a new dense matrix.
func (m *MemoryMappedDataset) GetChunk(startRow, endRow int) (*mat.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if startRow < 0 || endRow > m.shape[0] || startRow >= endRow {
		return nil, errors.Newf("invalid row range: [%d, %d)", startRow, endRow)
	}

	rows, cols := endRow-startRow, m.shape[1]
	data := make([]float64, rows*cols)
	size := m.dtype.ElementSize()
	offset := startRow * cols * size
	for k := range data {
		data[k] = m.readElement(offset + k*size)
	}
	return mat.NewDense(rows, cols, data), nil
}

// SetChunk writes chunk starting at startRow.
func (m *MemoryMappedDataset) SetChunk(startRow int, chunk mat.Matrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readOnly {
		return errors.New("dataset is mapped read-only")
	}
	rows, cols := chunk.Dims()
	if cols != m.shape[1] {
		return errors.NewDimensionError("SetChunk", m.shape[1], cols, 1)
	}
	if startRow < 0 || startRow+rows > m.shape[0] {
		return errors.Newf("invalid row range: [%d, %d)", startRow, startRow+rows)
	}

	size := m.dtype.ElementSize()
	offset := startRow * m.shape[1] * size
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.writeElement(offset+(i*cols+j)*size, chunk.At(i, j))
		}
	}
	return nil
}

// IterateChunks calls fn for consecutive blocks of at most chunkSize rows.
func (m *MemoryMappedDataset) IterateChunks(chunkSize int, fn func(chunk *mat.Dense, startRow int) error) error {
	if chunkSize <= 0 {
		return errors.NewValidationError("chunk_size", "must be positive", chunkSize)
	}
	for start := 0; start < m.shape[0]; start += chunkSize {
		end := start + chunkSize
		if end > m.shape[0] {
			end = m.shape[0]
		}

		chunk, err := m.GetChunk(start, end)
		if err != nil {
			return err
		}
		if err := fn(chunk, start); err != nil {
			return err
		}
	}
	return nil
}

// Close unmaps and closes the dataset. Writes are flushed to the file.
func (m *MemoryMappedDataset) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mmap == nil {
		return nil
	}
	err := unmapFile(m.file, m.mmap, !m.readOnly)
	m.mmap = nil
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (m *MemoryMappedDataset) readElement(offset int) float64 {
	if m.dtype == Float32 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(m.mmap[offset:])))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(m.mmap[offset:]))
}

func (m *MemoryMappedDataset) writeElement(offset int, v float64) {
	if m.dtype == Float32 {
		binary.LittleEndian.PutUint32(m.mmap[offset:], math.Float32bits(float32(v)))
		return
	}
	binary.LittleEndian.PutUint64(m.mmap[offset:], math.Float64bits(v))
}
