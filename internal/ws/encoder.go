package ws

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Encoder compresses snapshot payloads for the binary subprotocol.
type Encoder struct {
	zstdEncoder *zstd.Encoder
}

func NewEncoder() (*Encoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{zstdEncoder: enc}, nil
}

// Encode compresses a JSON payload with zstd.
func (e *Encoder) Encode(jsonData []byte) []byte {
	return e.zstdEncoder.EncodeAll(jsonData, nil)
}

// Close releases encoder resources.
func (e *Encoder) Close() {
	if e.zstdEncoder != nil {
		e.zstdEncoder.Close()
	}
}
