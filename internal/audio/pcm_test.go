package audio

import (
	"math"
	"testing"
	"time"
)

func TestDownmixToMono_SilenceStaysSilent(t *testing.T) {
	stereo := make([]int16, 960*2)
	mono := DownmixToMono(stereo)
	if len(mono) != len(stereo)/2 {
		t.Fatalf("unexpected mono length: %d", len(mono))
	}
	for i, s := range mono {
		if s != 0 {
			t.Fatalf("sample %d is %d, want 0", i, s)
		}
	}
}

func TestDownmixToMono_Averages(t *testing.T) {
	mono := DownmixToMono([]int16{100, 300, -50, -150})
	if mono[0] != 200 || mono[1] != -100 {
		t.Fatalf("unexpected downmix: %+v", mono)
	}
}

func TestDownmixToMono_FullScaleNeverOverflows(t *testing.T) {
	stereo := []int16{math.MaxInt16, math.MaxInt16, math.MinInt16, math.MinInt16}
	mono := DownmixToMono(stereo)
	if mono[0] != math.MaxInt16 {
		t.Fatalf("positive full scale mangled: %d", mono[0])
	}
	if mono[1] != math.MinInt16 {
		t.Fatalf("negative full scale mangled: %d", mono[1])
	}
}

func TestDownmixToMono_DropsUnpairedTail(t *testing.T) {
	mono := DownmixToMono([]int16{10, 20, 30})
	if len(mono) != 1 || mono[0] != 15 {
		t.Fatalf("unexpected result: %+v", mono)
	}
}

func TestClampPCM(t *testing.T) {
	if ClampPCM(40000) != math.MaxInt16 {
		t.Fatal("expected positive clamp")
	}
	if ClampPCM(-40000) != math.MinInt16 {
		t.Fatal("expected negative clamp")
	}
	if ClampPCM(123) != 123 {
		t.Fatal("expected passthrough")
	}
}

func TestResampleMono_Length(t *testing.T) {
	in := make([]int16, 24000)
	out := ResampleMono(in, 24000, 48000)
	if len(out) != 48000 {
		t.Fatalf("unexpected upsample length: %d", len(out))
	}
	out = ResampleMono(in, 24000, 24000)
	if len(out) != len(in) {
		t.Fatalf("unexpected passthrough length: %d", len(out))
	}
}

func TestResampleMono_ConstantSignalStaysConstant(t *testing.T) {
	in := make([]int16, 1000)
	for i := range in {
		in[i] = 1000
	}
	for _, s := range ResampleMono(in, 24000, 48000) {
		if s != 1000 {
			t.Fatalf("interpolation distorted constant signal: %d", s)
		}
	}
}

func TestMonoToStereo(t *testing.T) {
	st := MonoToStereo([]int16{1, -2})
	want := []int16{1, 1, -2, -2}
	for i := range want {
		if st[i] != want[i] {
			t.Fatalf("unexpected stereo: %+v", st)
		}
	}
}

func TestTone(t *testing.T) {
	pcm := Tone(880, 100*time.Millisecond, 0.5)
	if len(pcm) != int(float64(SampleRate)*0.1)*Channels {
		t.Fatalf("unexpected tone length: %d", len(pcm))
	}
	peak := int16(0)
	for _, s := range pcm {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Fatal("tone is silent")
	}
	if peak > int16(0.5*32768) {
		t.Fatalf("tone exceeds requested amplitude: %d", peak)
	}
}
