package codec

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

const maxDecodedSize = 64 << 20

// ZstdCompressor is safe for concurrent use; EncodeAll and DecodeAll share one encoder and decoder.
type ZstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewZstdCompressor() (*ZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ZstdCompressor{encoder: enc, decoder: dec}, nil
}

func MustZstdCompressor() *ZstdCompressor {
	c, err := NewZstdCompressor()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *ZstdCompressor) Compress(text string) ([]byte, error) {
	return c.encoder.EncodeAll([]byte(text), nil), nil
}

// Decompress passes through bytes that were stored without compression.
func (c *ZstdCompressor) Decompress(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return string(data), nil
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("zstd decode: %w", err)
	}
	return string(out), nil
}

func (c *ZstdCompressor) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
