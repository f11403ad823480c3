package datasets

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/YuminosukeSato/scibench/pkg/errors"
)

const (
	idxImagesMagic = 0x00000803
	idxLabelsMagic = 0x00000801
)

// IDXImages is a decoded IDX3 image file. Pixels holds Count rows of
// Rows*Cols bytes each, row-major.
type IDXImages struct {
	Count  int
	Rows   int
	Cols   int
	Pixels []byte
}

// Features returns the number of pixels per image.
func (im *IDXImages) Features() int {
	return im.Rows * im.Cols
}

// DecodeIDXImages reads an IDX3 image file. Gzip-compressed input is
// detected and decompressed transparently.
func DecodeIDXImages(r io.Reader) (*IDXImages, error) {
	br, closeFn, err := maybeGunzip(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var hdr [4]uint32
	if err := binary.Read(br, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "read idx image header")
	}
	if hdr[0] != idxImagesMagic {
		return nil, errors.Newf("idx: bad image magic %#x", hdr[0])
	}

	im := &IDXImages{Count: int(hdr[1]), Rows: int(hdr[2]), Cols: int(hdr[3])}
	im.Pixels = make([]byte, im.Count*im.Features())
	if _, err := io.ReadFull(br, im.Pixels); err != nil {
		return nil, errors.Wrapf(err, "read %d idx images", im.Count)
	}
	return im, nil
}

// DecodeIDXLabels reads an IDX1 label file.
func DecodeIDXLabels(r io.Reader) ([]byte, error) {
	br, closeFn, err := maybeGunzip(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var hdr [2]uint32
	if err := binary.Read(br, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "read idx label header")
	}
	if hdr[0] != idxLabelsMagic {
		return nil, errors.Newf("idx: bad label magic %#x", hdr[0])
	}

	labels := make([]byte, hdr[1])
	if _, err := io.ReadFull(br, labels); err != nil {
		return nil, errors.Wrapf(err, "read %d idx labels", hdr[1])
	}
	return labels, nil
}

// EncodeIDXImages writes im in IDX3 format, uncompressed.
func EncodeIDXImages(w io.Writer, im *IDXImages) error {
	hdr := [4]uint32{idxImagesMagic, uint32(im.Count), uint32(im.Rows), uint32(im.Cols)}
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return errors.Wrap(err, "write idx image header")
	}
	_, err := w.Write(im.Pixels)
	return errors.Wrap(err, "write idx images")
}

// EncodeIDXLabels writes labels in IDX1 format, uncompressed.
func EncodeIDXLabels(w io.Writer, labels []byte) error {
	hdr := [2]uint32{idxLabelsMagic, uint32(len(labels))}
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return errors.Wrap(err, "write idx label header")
	}
	_, err := w.Write(labels)
	return errors.Wrap(err, "write idx labels")
}

func maybeGunzip(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, nil, errors.Wrap(err, "peek idx stream")
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return br, func() {}, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open gzip stream")
	}
	return bufio.NewReader(zr), func() { zr.Close() }, nil
}
