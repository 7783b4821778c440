package audio

// Platform voice format: 48kHz interleaved stereo, 20ms opus frames.
const (
	SampleRate      = 48000
	Channels        = 2
	FrameMs         = 20
	SamplesPerFrame = SampleRate * FrameMs * Channels / 1000
)

// Decoder turns one speaker's compressed frame stream back into interleaved
// stereo PCM. One decoder per capture; not safe for concurrent use.
type Decoder interface {
	Decode(packet []byte) ([]int16, error)
	Close()
}

// Encoder produces platform frames from interleaved stereo PCM for playback.
type Encoder interface {
	Encode(pcm []int16) ([]byte, error)
	Close()
}

type DecoderFactory func() (Decoder, error)

type EncoderFactory func() (Encoder, error)
