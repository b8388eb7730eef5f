package archive

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

var magics = []struct {
	compression model.Compression
	prefix      []byte
}{
	{model.CompressionGzip, []byte{0x1f, 0x8b}},
	{model.CompressionBzip2, []byte("BZh")},
	{model.CompressionXz, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{model.CompressionZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{model.CompressionLz4, []byte{0x04, 0x22, 0x4d, 0x18}},
}

// detectCompression peeks at the head of r without consuming it.
func detectCompression(r *bufio.Reader) model.Compression {
	head, _ := r.Peek(6)
	for _, m := range magics {
		if bytes.HasPrefix(head, m.prefix) {
			return m.compression
		}
	}
	return model.CompressionNone
}

// decompress wraps r with the decoder for c. The returned closer releases
// decoder resources only; it does not close r.
func decompress(r io.Reader, c model.Compression) (io.Reader, func(), error) {
	noop := func() {}

	switch c {
	case model.CompressionNone:
		return r, noop, nil

	case model.CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to open gzip stream")
		}
		return zr, func() { _ = zr.Close() }, nil

	case model.CompressionBzip2:
		return bzip2.NewReader(r), noop, nil

	case model.CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to open xz stream")
		}
		return xr, noop, nil

	case model.CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to open zstd stream")
		}
		return dec, dec.Close, nil

	case model.CompressionLz4:
		return lz4.NewReader(r), noop, nil

	default:
		return nil, nil, goerr.New("unknown compression", goerr.V("compression", c))
	}
}
