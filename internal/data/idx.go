package data

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051 // 0x00000803: unsigned bytes, 3 dims
	idxLabelsMagic = 2049 // 0x00000801: unsigned bytes, 1 dim
)

// ErrInvalidIDX is returned for malformed IDX streams.
var ErrInvalidIDX = errors.New("invalid IDX file")

// RawImages is a decoded IDX image file.
type RawImages struct {
	Rows, Cols int
	Pixels     [][]byte // one row-major Rows*Cols slice per image
}

// ReadIDXImages decodes an IDX image stream:
//
//	magic: 2051, count, rows, cols (uint32 big-endian), then count*rows*cols bytes
func ReadIDXImages(r io.Reader) (*RawImages, error) {
	var hdr [4]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidIDX, err)
	}
	if hdr[0] != idxImagesMagic {
		return nil, fmt.Errorf("%w: magic %d, want %d", ErrInvalidIDX, hdr[0], idxImagesMagic)
	}
	count, rows, cols := int(hdr[1]), int(hdr[2]), int(hdr[3])
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrInvalidIDX, rows, cols)
	}

	out := &RawImages{Rows: rows, Cols: cols, Pixels: make([][]byte, count)}
	for i := range out.Pixels {
		out.Pixels[i] = make([]byte, rows*cols)
		if _, err := io.ReadFull(r, out.Pixels[i]); err != nil {
			return nil, fmt.Errorf("%w: image %d: %w", ErrInvalidIDX, i, err)
		}
	}
	return out, nil
}

// ReadIDXLabels decodes an IDX label stream:
//
//	magic: 2049, count (uint32 big-endian), then count bytes
func ReadIDXLabels(r io.Reader) ([]byte, error) {
	var hdr [2]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidIDX, err)
	}
	if hdr[0] != idxLabelsMagic {
		return nil, fmt.Errorf("%w: magic %d, want %d", ErrInvalidIDX, hdr[0], idxLabelsMagic)
	}

	labels := make([]byte, hdr[1])
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("%w: labels: %w", ErrInvalidIDX, err)
	}
	return labels, nil
}

// openIDX opens path, transparently decompressing ".gz" files as
// distributed on the MNIST mirrors.
func openIDX(path string) (io.ReadCloser, error) {
	//nolint:gosec // G304: dataset path is user supplied
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}
