//go:build !opus

package audio

import "github.com/foxseedlab/oshaberin/internal/audio"

// Stubs keep the module buildable without the cgo opus toolchain. Builds
// tagged "opus" get the real codec.

type noopDecoder struct{}

func NewOpusDecoder() (audio.Decoder, error) {
	return &noopDecoder{}, nil
}

func (d *noopDecoder) Decode(_ []byte) ([]int16, error) { return nil, nil }

func (d *noopDecoder) Close() {}

type noopEncoder struct{}

func NewOpusEncoder() (audio.Encoder, error) {
	return &noopEncoder{}, nil
}

func (e *noopEncoder) Encode(_ []int16) ([]byte, error) { return nil, nil }

func (e *noopEncoder) Close() {}
