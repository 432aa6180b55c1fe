package loader

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how an input file is compressed.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZ
	CompressionBZ2
	CompressionXZ
	CompressionZSTD
)

const (
	extGZ   = ".gz"
	extBZ2  = ".bz2"
	extXZ   = ".xz"
	extZSTD = ".zst"
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionGZ:
		return "gzip"
	case CompressionBZ2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// DetectCompression infers the compression from a file name suffix.
func DetectCompression(name string) Compression {
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, extGZ):
		return CompressionGZ
	case strings.HasSuffix(name, extBZ2):
		return CompressionBZ2
	case strings.HasSuffix(name, extXZ):
		return CompressionXZ
	case strings.HasSuffix(name, extZSTD):
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// trimCompressionExt strips a recognized compression suffix from name.
func trimCompressionExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{extGZ, extBZ2, extXZ, extZSTD} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// decompress wraps r with a decompressing reader. The returned cleanup
// must be called once the reader is drained.
func decompress(c Compression, r io.Reader) (io.Reader, func() error, error) {
	switch c {
	case CompressionNone:
		return r, func() error { return nil }, nil

	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, gz.Close, nil

	case CompressionBZ2:
		return bzip2.NewReader(r), func() error { return nil }, nil

	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xr, func() error { return nil }, nil

	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return dec, func() error {
			dec.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression: %v", c)
	}
}
