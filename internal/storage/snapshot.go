package storage

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

// compressSnapshot zstd-compresses a violation snapshot. Empty input stays
// empty.
func compressSnapshot(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	encoderOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4))
}

func decompressSnapshot(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return decoder.DecodeAll(blob, nil)
}
