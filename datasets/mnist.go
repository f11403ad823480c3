package datasets

import (
	"context"
	"time"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/pkg/log"
	"gonum.org/v1/gonum/mat"
)

const mnistName = "mnist"

// Loader loads the MNIST benchmark split.
type Loader struct {
	Source Source
	Cache  Cache // nil disables caching

	NSamples  int     // total rows of the versioned dataset
	NFeatures int     // pixels per image
	NClasses  int     // labels are 0..NClasses-1
	NTrain    int     // split row
	Divisor   float64 // pixel rescaling divisor

	Logger log.Logger
}

// NewMNISTLoader returns a loader for the canonical 70000x784 dataset split
// at row 60000.
func NewMNISTLoader(src Source, cache Cache) *Loader {
	return &Loader{
		Source:    src,
		Cache:     cache,
		NSamples:  70000,
		NFeatures: 784,
		NClasses:  10,
		NTrain:    60000,
		Divisor:   255,
	}
}

func (l *Loader) logger() log.Logger {
	lg := l.Logger
	if lg == nil {
		lg = log.GetLogger()
	}
	return lg.With(log.ComponentKey, "datasets", log.OperationKey, log.OperationLoad)
}

// Load returns the train/test split for cfg. Repeated loads with the same
// cfg return identical data. Fetch and schema failures are reported as
// DataUnavailableError.
func (l *Loader) Load(ctx context.Context, cfg LoadConfig) (*Dataset, error) {
	if _, err := ParseOrder(string(cfg.Order)); err != nil {
		return nil, err
	}
	if _, err := ParseDType(string(cfg.DType)); err != nil {
		return nil, err
	}

	logger := l.logger()
	key := Fingerprint(cfg)

	if l.Cache != nil {
		rec, ok, err := l.Cache.Get(key)
		if err != nil {
			logger.Warn("Ignoring unreadable cache entry", log.CacheKey, key, log.ErrAttrKey, err)
		} else if ok {
			logger.Debug("Dataset cache hit", log.CacheKey, key)
			ds, err := l.fromRecord(rec, cfg)
			if err == nil {
				return ds, nil
			}
			logger.Warn("Ignoring invalid cache entry", log.CacheKey, key, log.ErrAttrKey, err)
		}
	}

	start := time.Now()
	logger.Info("loading dataset...", log.CacheKey, key)

	rec, err := l.fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rec.Fingerprint = key

	ds, err := l.fromRecord(rec, cfg)
	if err != nil {
		return nil, err
	}

	if l.Cache != nil {
		if err := l.Cache.Put(key, rec); err != nil {
			logger.Warn("Failed to cache dataset", log.CacheKey, key, log.ErrAttrKey, err)
		}
	}

	logger.Info("Dataset loaded",
		log.SamplesKey, rec.Rows,
		log.FeaturesKey, rec.Features,
		log.DataTypeKey, string(cfg.DType),
		log.DataOrderKey, string(cfg.Order),
		log.DurationSecondsKey, time.Since(start).Seconds(),
	)
	return ds, nil
}

func (l *Loader) fetch(ctx context.Context, cfg LoadConfig) (*Record, error) {
	if l.Source == nil {
		return nil, errors.NewDataUnavailableError(mnistName, "no source configured", nil)
	}

	trainX, trainY, err := l.readPair(ctx, TrainImagesFile, TrainLabelsFile)
	if err != nil {
		return nil, err
	}
	testX, testY, err := l.readPair(ctx, TestImagesFile, TestLabelsFile)
	if err != nil {
		return nil, err
	}

	if trainX.Features() != l.NFeatures || testX.Features() != l.NFeatures {
		return nil, errors.NewDataUnavailableError(mnistName, "schema validation failed",
			errors.NewDimensionError("mnist", l.NFeatures, testX.Features(), 1))
	}

	rows := trainX.Count + testX.Count
	if rows != l.NSamples {
		return nil, errors.NewDataUnavailableError(mnistName, "schema validation failed",
			errors.NewDimensionError("mnist", l.NSamples, rows, 0))
	}
	if l.NTrain <= 0 || l.NTrain >= rows {
		return nil, errors.NewDataUnavailableError(mnistName, "schema validation failed",
			errors.NewValidationError("n_train", "must split the dataset into two non-empty parts", l.NTrain))
	}

	pixels := make([]byte, 0, rows*l.NFeatures)
	pixels = append(pixels, trainX.Pixels...)
	pixels = append(pixels, testX.Pixels...)

	labels := make([]float64, 0, rows)
	for _, lb := range append(append([]byte{}, trainY...), testY...) {
		if int(lb) >= l.NClasses {
			return nil, errors.NewDataUnavailableError(mnistName, "schema validation failed",
				errors.NewValidationError("label", "out of range", int(lb)))
		}
		labels = append(labels, float64(lb))
	}

	return &Record{
		Rows:     rows,
		Features: l.NFeatures,
		NTrain:   l.NTrain,
		DType:    cfg.DType,
		Data:     l.coerce(pixels, rows, cfg),
		Labels:   labels,
	}, nil
}

func (l *Loader) readPair(ctx context.Context, imagesName, labelsName string) (*IDXImages, []byte, error) {
	rc, err := l.Source.Open(ctx, imagesName)
	if err != nil {
		return nil, nil, errors.NewDataUnavailableError(mnistName, "fetch "+imagesName, err)
	}
	images, err := DecodeIDXImages(rc)
	rc.Close()
	if err != nil {
		return nil, nil, errors.NewDataUnavailableError(mnistName, "decode "+imagesName, err)
	}

	rc, err = l.Source.Open(ctx, labelsName)
	if err != nil {
		return nil, nil, errors.NewDataUnavailableError(mnistName, "fetch "+labelsName, err)
	}
	labels, err := DecodeIDXLabels(rc)
	rc.Close()
	if err != nil {
		return nil, nil, errors.NewDataUnavailableError(mnistName, "decode "+labelsName, err)
	}

	if len(labels) != images.Count {
		return nil, nil, errors.NewDataUnavailableError(mnistName, "schema validation failed",
			errors.NewDimensionError(labelsName, images.Count, len(labels), 0))
	}
	return images, labels, nil
}

// coerce rescales pixels by the divisor in the configured element width and
// writes them in the configured layout.
func (l *Loader) coerce(pixels []byte, rows int, cfg LoadConfig) []float64 {
	cols := l.NFeatures
	out := make([]float64, rows*cols)
	div32 := float32(l.Divisor)
	if cfg.DType == Float32 {
		errors.Warn(errors.NewDataConversionWarning("uint8", "float32",
			"pixels rescaled in single precision"))
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p := pixels[i*cols+j]
			var v float64
			if cfg.DType == Float32 {
				v = float64(float32(p) / div32)
			} else {
				v = float64(p) / l.Divisor
			}
			if cfg.Order == OrderF {
				out[j*rows+i] = v
			} else {
				out[i*cols+j] = v
			}
		}
	}
	return out
}

func (l *Loader) fromRecord(rec *Record, cfg LoadConfig) (*Dataset, error) {
	if len(rec.Data) != rec.Rows*rec.Features || len(rec.Labels) != rec.Rows {
		return nil, errors.NewDataUnavailableError(mnistName, "corrupt record", nil)
	}
	if rec.NTrain <= 0 || rec.NTrain >= rec.Rows {
		return nil, errors.NewDataUnavailableError(mnistName, "corrupt record", nil)
	}

	n, f, nTrain := rec.Rows, rec.Features, rec.NTrain
	ds := &Dataset{
		TrainY: mat.NewVecDense(nTrain, rec.Labels[:nTrain:nTrain]),
		TestY:  mat.NewVecDense(n-nTrain, rec.Labels[nTrain:]),
		DType:  cfg.DType,
		Order:  cfg.Order,
	}

	if cfg.Order == OrderF {
		// f×n storage, each column one sample
		xt := mat.NewDense(f, n, rec.Data)
		ds.TrainX = xt.Slice(0, f, 0, nTrain).T()
		ds.TestX = xt.Slice(0, f, nTrain, n).T()
	} else {
		x := mat.NewDense(n, f, rec.Data)
		ds.TrainX = x.Slice(0, nTrain, 0, f)
		ds.TestX = x.Slice(nTrain, n, 0, f)
	}

	if err := ds.Validate(); err != nil {
		return nil, errors.NewDataUnavailableError(mnistName, "schema validation failed", err)
	}
	return ds, nil
}
