package fixture

import (
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/lugondev/go-anvil/pkg/entrypoint"
)

// CompressedExt marks zstd-compressed input buffer files.
const CompressedExt = ".zst"

// WriteBuffer stores a serialized input buffer. Paths ending in
// CompressedExt are zstd-compressed.
func WriteBuffer(path string, buf []byte) error {
	out := buf
	if strings.HasSuffix(path, CompressedExt) {
		var err error
		if out, err = compress(buf); err != nil {
			return fmt.Errorf("failed to compress buffer: %w", err)
		}
	}
	return os.WriteFile(path, out, 0o644)
}

// ReadBuffer loads an input buffer written by WriteBuffer into aligned
// memory.
func ReadBuffer(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read buffer: %w", err)
	}
	if strings.HasSuffix(path, CompressedExt) {
		if raw, err = decompress(raw); err != nil {
			return nil, fmt.Errorf("failed to decompress buffer: %w", err)
		}
	}
	buf := entrypoint.AlignedBuffer(len(raw))
	copy(buf, raw)
	return buf, nil
}

func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}
