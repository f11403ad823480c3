package datasets

import (
	"bytes"
	"compress/gzip"
	"context"
	"testing"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const (
	testTrain    = 6
	testTest     = 4
	testFeatures = 4 // 2x2 images
)

func encodeImages(t *testing.T, count, offset int, gz bool) []byte {
	t.Helper()
	im := &IDXImages{Count: count, Rows: 2, Cols: 2, Pixels: make([]byte, count*testFeatures)}
	for i := range im.Pixels {
		im.Pixels[i] = byte((offset*testFeatures + i*37) % 256)
	}
	var buf bytes.Buffer
	if gz {
		zw := gzip.NewWriter(&buf)
		require.NoError(t, EncodeIDXImages(zw, im))
		require.NoError(t, zw.Close())
	} else {
		require.NoError(t, EncodeIDXImages(&buf, im))
	}
	return buf.Bytes()
}

func encodeLabels(t *testing.T, labels []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeIDXLabels(&buf, labels))
	return buf.Bytes()
}

func testSource(t *testing.T) MapSource {
	return MapSource{
		TrainImagesFile: encodeImages(t, testTrain, 0, true),
		TrainLabelsFile: encodeLabels(t, []byte{0, 1, 2, 3, 4, 5}),
		TestImagesFile:  encodeImages(t, testTest, testTrain, false),
		TestLabelsFile:  encodeLabels(t, []byte{6, 7, 8, 9}),
	}
}

func testLoader(src Source, cache Cache) *Loader {
	l := NewMNISTLoader(src, cache)
	l.NSamples = testTrain + testTest
	l.NFeatures = testFeatures
	l.NTrain = testTrain
	l.Logger, _ = log.NewTestLogger(log.LevelDebug)
	return l
}

func TestDecodeIDX(t *testing.T) {
	im, err := DecodeIDXImages(bytes.NewReader(encodeImages(t, 3, 0, true)))
	require.NoError(t, err)
	assert.Equal(t, 3, im.Count)
	assert.Equal(t, testFeatures, im.Features())
	assert.Len(t, im.Pixels, 3*testFeatures)

	labels, err := DecodeIDXLabels(bytes.NewReader(encodeLabels(t, []byte{1, 2})))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, labels)

	_, err = DecodeIDXImages(bytes.NewReader(encodeLabels(t, []byte{1, 2})))
	assert.Error(t, err, "label file is not an image file")
}

func TestLoaderSplit(t *testing.T) {
	for _, order := range []Order{OrderC, OrderF} {
		t.Run(string(order), func(t *testing.T) {
			ds, err := testLoader(testSource(t), nil).Load(context.Background(), LoadConfig{Order: order, DType: Float64})
			require.NoError(t, err)

			trR, trC := ds.TrainX.Dims()
			teR, teC := ds.TestX.Dims()
			assert.Equal(t, testTrain+testTest, trR+teR)
			assert.Equal(t, trC, teC)
			assert.Equal(t, testTrain, trR)
			assert.Equal(t, testFeatures, trC)
			assert.NoError(t, ds.Validate())

			assert.Equal(t, 6.0, ds.TestY.AtVec(0))
			assert.InDelta(t, float64((1*testFeatures*37)%256)/255, ds.TrainX.At(1, 0), 1e-15)

			for i := 0; i < trR; i++ {
				for j := 0; j < trC; j++ {
					v := ds.TrainX.At(i, j)
					assert.True(t, v >= 0 && v <= 1)
				}
			}
		})
	}
}

func TestLoaderLayouts(t *testing.T) {
	ctx := context.Background()
	c, err := testLoader(testSource(t), nil).Load(ctx, LoadConfig{Order: OrderC, DType: Float64})
	require.NoError(t, err)
	f, err := testLoader(testSource(t), nil).Load(ctx, LoadConfig{Order: OrderF, DType: Float64})
	require.NoError(t, err)

	assert.True(t, mat.Equal(c.TrainX, f.TrainX))
	assert.True(t, mat.Equal(c.TestX, f.TestX))

	_, isDense := c.TrainX.(*mat.Dense)
	assert.True(t, isDense)
	_, isTranspose := f.TrainX.(mat.Transpose)
	assert.True(t, isTranspose)
}

func TestLoaderFloat32(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	ds, err := testLoader(testSource(t), nil).Load(context.Background(), LoadConfig{Order: OrderC, DType: Float32})
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	var dc *errors.DataConversionWarning
	require.True(t, errors.As(warnings[0], &dc))
	assert.Equal(t, "uint8", dc.FromType)
	assert.Equal(t, "float32", dc.ToType)

	_, err = testLoader(testSource(t), nil).Load(context.Background(), LoadConfig{Order: OrderC, DType: Float64})
	require.NoError(t, err)
	assert.Len(t, warnings, 1, "float64 loads convert without narrowing")

	v := ds.TrainX.At(0, 1)
	assert.Equal(t, v, float64(float32(v)))

	stats := ds.Stats()
	assert.Equal(t, "float32", stats.DType)
	assert.Equal(t, int64(testTrain*testFeatures*4), stats.TrainBytes)
	assert.Equal(t, 6, stats.Classes)
}

func TestLoaderIdempotentWithCache(t *testing.T) {
	ctx := context.Background()
	cache := &DirCache{Dir: t.TempDir()}
	cfg := LoadConfig{Order: OrderF, DType: Float32}

	first, err := testLoader(testSource(t), cache).Load(ctx, cfg)
	require.NoError(t, err)

	// an empty source proves the second load is served from the cache
	second, err := testLoader(MapSource{}, cache).Load(ctx, cfg)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first.TrainX, second.TrainX))
	assert.True(t, mat.Equal(first.TestX, second.TestX))
	assert.True(t, mat.Equal(first.TrainY, second.TrainY))

	rec, ok, err := cache.Get(Fingerprint(cfg))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mnist-v2-float32-F", rec.Fingerprint)
	assert.Equal(t, Float32, rec.DType)

	_, ok, err = cache.Get(Fingerprint(LoadConfig{Order: OrderC, DType: Float32}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoaderDataUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(MapSource)
	}{
		{"missing file", func(s MapSource) { delete(s, TestLabelsFile) }},
		{"label out of range", func(s MapSource) { s[TestLabelsFile] = encodeLabels(t, []byte{6, 7, 8, 10}) }},
		{"label count mismatch", func(s MapSource) { s[TestLabelsFile] = encodeLabels(t, []byte{6, 7}) }},
		{"truncated images", func(s MapSource) { s[TestImagesFile] = s[TestImagesFile][:20] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource(t)
			tt.mutate(src)
			_, err := testLoader(src, nil).Load(context.Background(), LoadConfig{Order: OrderC, DType: Float64})
			require.Error(t, err)
			var du *errors.DataUnavailableError
			assert.True(t, errors.As(err, &du), "got %v", err)
		})
	}

	t.Run("wrong total rows", func(t *testing.T) {
		l := testLoader(testSource(t), nil)
		l.NSamples = 70000
		_, err := l.Load(context.Background(), LoadConfig{Order: OrderC, DType: Float64})
		var du *errors.DataUnavailableError
		assert.True(t, errors.As(err, &du))
	})
}

func TestParseFlags(t *testing.T) {
	_, err := ParseOrder("X")
	assert.Error(t, err)
	o, err := ParseOrder("F")
	require.NoError(t, err)
	assert.Equal(t, OrderF, o)

	_, err = ParseDType("int8")
	assert.Error(t, err)
}
