package performance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMemoryMappedDatasetRoundTrip(t *testing.T) {
	for _, dtype := range []DataType{Float64, Float32} {
		t.Run(dtype.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x.bin")
			w, err := CreateMemoryMappedDataset(path, 5, 3, dtype)
			require.NoError(t, err)

			src := mat.NewDense(5, 3, []float64{
				0, 0.25, 0.5,
				1, 1.5, 2,
				-3, 4, 5.75,
				6, 7, 8,
				9, 10, 0.125,
			})
			require.NoError(t, w.SetChunk(0, src.Slice(0, 2, 0, 3)))
			require.NoError(t, w.SetChunk(2, src.Slice(2, 5, 0, 3)))
			require.NoError(t, w.Close())

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, int64(15*dtype.ElementSize()), info.Size())

			r, err := OpenMemoryMappedDataset(path, 5, 3, dtype)
			require.NoError(t, err)
			defer r.Close()

			rows, cols := r.Dims()
			assert.Equal(t, 5, rows)
			assert.Equal(t, 3, cols)
			assert.Equal(t, dtype, r.DType())

			chunk, err := r.GetChunk(1, 3)
			require.NoError(t, err)
			assert.True(t, mat.Equal(src.Slice(1, 3, 0, 3), chunk))

			var starts []int
			got := mat.NewDense(5, 3, nil)
			require.NoError(t, r.IterateChunks(2, func(c *mat.Dense, start int) error {
				starts = append(starts, start)
				n, _ := c.Dims()
				got.Slice(start, start+n, 0, 3).(*mat.Dense).Copy(c)
				return nil
			}))
			assert.Equal(t, []int{0, 2, 4}, starts)
			assert.True(t, mat.Equal(src, got))

			assert.Error(t, r.SetChunk(0, src.Slice(0, 1, 0, 3)), "read-only mapping")
		})
	}
}

func TestMemoryMappedDatasetFloat32Rounding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bin")
	w, err := CreateMemoryMappedDataset(path, 1, 1, Float32)
	require.NoError(t, err)
	require.NoError(t, w.SetChunk(0, mat.NewDense(1, 1, []float64{0.1})))
	require.NoError(t, w.Close())

	r, err := OpenMemoryMappedDataset(path, 1, 1, Float32)
	require.NoError(t, err)
	defer r.Close()
	c, err := r.GetChunk(0, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(float32(0.1)), c.At(0, 0))
}

func TestMemoryMappedDatasetErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.bin")

	_, err := CreateMemoryMappedDataset(path, 0, 3, Float64)
	assert.Error(t, err)

	_, err = OpenMemoryMappedDataset(filepath.Join(dir, "missing.bin"), 2, 2, Float64)
	assert.Error(t, err)

	w, err := CreateMemoryMappedDataset(path, 2, 2, Float64)
	require.NoError(t, err)
	assert.Error(t, w.SetChunk(0, mat.NewDense(1, 3, nil)), "column mismatch")
	assert.Error(t, w.SetChunk(2, mat.NewDense(1, 2, nil)), "past the last row")
	_, err = w.GetChunk(1, 1)
	assert.Error(t, err)
	assert.Error(t, w.IterateChunks(0, func(*mat.Dense, int) error { return nil }))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")

	// size mismatch: 2x2 float64 opened as 3x2
	_, err = OpenMemoryMappedDataset(path, 3, 2, Float64)
	assert.Error(t, err)
	_, err = OpenMemoryMappedDataset(path, 2, 2, Float32)
	assert.Error(t, err)
}
