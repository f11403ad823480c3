package datasets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/performance"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DataHomeEnv overrides the default data home directory.
const DataHomeEnv = "SCIBENCH_DATA"

// DataHome returns $SCIBENCH_DATA, or ~/scibench_data.
func DataHome() string {
	if dir := os.Getenv(DataHomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "scibench_data"
	}
	return filepath.Join(home, "scibench_data")
}

// LoadConfig selects the element width and memory layout of a load.
type LoadConfig struct {
	Order Order
	DType DType
}

// Fingerprint is the cache key of a load configuration.
func Fingerprint(cfg LoadConfig) string {
	return fmt.Sprintf("mnist-v2-%s-%s", cfg.DType, cfg.Order)
}

// Record is the cached form of a loaded dataset. Data holds every feature
// value of the full dataset in the configured layout.
type Record struct {
	Fingerprint string
	Rows        int
	Features    int
	NTrain      int
	DType       DType
	Data        []float64
	Labels      []float64
}

// Cache stores load records by fingerprint.
type Cache interface {
	// Get returns (nil, false, nil) on a miss.
	Get(key string) (*Record, bool, error)
	Put(key string, rec *Record) error
}

// DirCache keeps two files per fingerprint under Dir: a gob header with
// the shape and labels, and the feature values as a raw little-endian
// file that is memory mapped read-only on a hit.
type DirCache struct {
	Dir string
}

// NewDirCache returns a cache under dataHome/mnist_benchmark_data.
func NewDirCache(dataHome string) *DirCache {
	return &DirCache{Dir: filepath.Join(dataHome, "mnist_benchmark_data")}
}

// cacheChunkRows bounds the rows copied out of the mapping per step.
const cacheChunkRows = 10000

type cacheHeader struct {
	Fingerprint string
	Rows        int
	Features    int
	NTrain      int
	DType       DType
	Labels      []float64
}

func (c *DirCache) headerPath(key string) string {
	return filepath.Join(c.Dir, key+".gob")
}

func (c *DirCache) dataPath(key string) string {
	return filepath.Join(c.Dir, key+".bin")
}

// elementType picks the on-disk width. float32 records hold values that
// are exact in single precision, so the narrower file loses nothing.
func elementType(d DType) performance.DataType {
	if d == Float32 {
		return performance.Float32
	}
	return performance.Float64
}

// Get loads the record stored under key.
func (c *DirCache) Get(key string) (*Record, bool, error) {
	hp := c.headerPath(key)
	if _, err := os.Stat(hp); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	var h cacheHeader
	if err := model.LoadModel(&h, hp); err != nil {
		return nil, false, errors.Wrapf(err, "read cache header %s", key)
	}
	if h.Fingerprint != key {
		return nil, false, nil
	}

	m, err := performance.OpenMemoryMappedDataset(c.dataPath(key), h.Rows, h.Features, elementType(h.DType))
	if err != nil {
		return nil, false, errors.Wrapf(err, "map cache entry %s", key)
	}
	defer m.Close()

	data := make([]float64, h.Rows*h.Features)
	err = m.IterateChunks(cacheChunkRows, func(chunk *mat.Dense, start int) error {
		copy(data[start*h.Features:], chunk.RawMatrix().Data)
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "read cache entry %s", key)
	}

	return &Record{
		Fingerprint: h.Fingerprint,
		Rows:        h.Rows,
		Features:    h.Features,
		NTrain:      h.NTrain,
		DType:       h.DType,
		Data:        data,
		Labels:      h.Labels,
	}, true, nil
}

// Put writes rec under key. The header goes last, so an interrupted write
// reads back as a miss.
func (c *DirCache) Put(key string, rec *Record) error {
	if len(rec.Data) != rec.Rows*rec.Features {
		return errors.NewDimensionError("DirCache.Put", rec.Rows*rec.Features, len(rec.Data), 0)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create cache dir %s", c.Dir)
	}
	_ = os.Remove(c.headerPath(key))

	// Data is written flat; the shape only sets the file size.
	tmp := c.dataPath(key) + ".tmp"
	m, err := performance.CreateMemoryMappedDataset(tmp, rec.Rows, rec.Features, elementType(rec.DType))
	if err != nil {
		return errors.Wrapf(err, "write cache entry %s", key)
	}
	err = m.SetChunk(0, mat.NewDense(rec.Rows, rec.Features, rec.Data))
	if cerr := m.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, c.dataPath(key))
	}
	if err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "write cache entry %s", key)
	}

	h := cacheHeader{
		Fingerprint: key,
		Rows:        rec.Rows,
		Features:    rec.Features,
		NTrain:      rec.NTrain,
		DType:       rec.DType,
		Labels:      rec.Labels,
	}
	return errors.Wrapf(model.SaveModel(&h, c.headerPath(key)), "write cache header %s", key)
}
