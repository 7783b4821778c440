package audio

import (
	"math"
	"time"
)

// DownmixToMono averages interleaved stereo samples pairwise. The sum is
// widened to int32 before halving so full-scale samples cannot overflow.
// A trailing unpaired sample is dropped.
func DownmixToMono(stereo []int16) []int16 {
	mono := make([]int16, len(stereo)/2)
	for i := range mono {
		sum := int32(stereo[2*i]) + int32(stereo[2*i+1])
		mono[i] = ClampPCM(sum / 2)
	}
	return mono
}

// MonoToStereo duplicates each sample into both channels.
func MonoToStereo(mono []int16) []int16 {
	stereo := make([]int16, len(mono)*2)
	for i, s := range mono {
		stereo[2*i] = s
		stereo[2*i+1] = s
	}
	return stereo
}

// ResampleMono converts mono PCM between sample rates by linear
// interpolation. Good enough for speech; this path never feeds a
// transcription model, only the playback device.
func ResampleMono(pcm []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(pcm) == 0 {
		out := make([]int16, len(pcm))
		copy(out, pcm)
		return out
	}
	outLen := int(int64(len(pcm)) * int64(toRate) / int64(fromRate))
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	ratio := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(pcm)-1 {
			out[i] = pcm[len(pcm)-1]
			continue
		}
		frac := pos - float64(idx)
		v := float64(pcm[idx])*(1-frac) + float64(pcm[idx+1])*frac
		out[i] = ClampPCM(int32(v))
	}
	return out
}

// Tone renders a sine beep as interleaved stereo at the platform rate.
func Tone(freqHz float64, duration time.Duration, amplitude float64) []int16 {
	samples := int(float64(SampleRate) * duration.Seconds())
	mono := make([]int16, samples)
	for i := range mono {
		v := amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/float64(SampleRate))
		mono[i] = ClampPCM(int32(v * 32767))
	}
	return MonoToStereo(mono)
}

// ClampPCM saturates to the 16-bit signed range.
func ClampPCM(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
