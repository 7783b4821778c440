//go:build opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/oshaberin/internal/audio"
	"github.com/hraban/opus"
)

type opusDecoder struct {
	dec *opus.Decoder
	buf []int16
}

// NewOpusDecoder decodes one speaker's opus stream into interleaved stereo
// PCM at the platform rate.
func NewOpusDecoder() (audio.Decoder, error) {
	dec, err := opus.NewDecoder(audio.SampleRate, audio.Channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &opusDecoder{
		dec: dec,
		buf: make([]int16, audio.SamplesPerFrame),
	}, nil
}

func (d *opusDecoder) Decode(packet []byte) ([]int16, error) {
	if len(packet) == 0 {
		return nil, nil
	}
	n, err := d.dec.Decode(packet, d.buf)
	if err != nil {
		return nil, fmt.Errorf("decode opus packet: %w", err)
	}
	total := n * audio.Channels
	if total > len(d.buf) {
		total = len(d.buf)
	}
	out := make([]int16, total)
	copy(out, d.buf[:total])
	return out, nil
}

func (d *opusDecoder) Close() {}

type opusEncoder struct {
	enc *opus.Encoder
	buf []byte
}

// NewOpusEncoder produces 20ms platform frames for voice playback.
func NewOpusEncoder() (audio.Encoder, error) {
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	return &opusEncoder{
		enc: enc,
		buf: make([]byte, 4000),
	}, nil
}

func (e *opusEncoder) Encode(pcm []int16) ([]byte, error) {
	if len(pcm) != audio.SamplesPerFrame {
		return nil, fmt.Errorf("encode expects exactly one %dms frame, got %d samples", audio.FrameMs, len(pcm))
	}
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, fmt.Errorf("encode opus frame: %w", err)
	}
	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}

func (e *opusEncoder) Close() {}
