package wake

import "testing"

func defaultProfile() Profile {
	return NewProfile([]string{"vi", "vee"}, true, SensitivityDefault)
}

func TestDetect_AliasWithGreeting(t *testing.T) {
	res := Detect("hey vee play some music", defaultProfile())
	if !res.Wake {
		t.Fatalf("expected wake, got %+v", res)
	}
	if res.Alias != "vee" {
		t.Fatalf("expected alias vee, got %q", res.Alias)
	}
	if res.Remainder != "play some music" {
		t.Fatalf("unexpected remainder: %q", res.Remainder)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", res.Confidence)
	}
}

func TestDetect_NearMissWithinTolerance(t *testing.T) {
	// "bee" is one phonetic edit away from "vee".
	res := Detect("hey bee play some music", defaultProfile())
	if !res.Wake {
		t.Fatalf("expected wake for near-miss, got %+v", res)
	}
}

func TestDetect_UnrelatedSentence(t *testing.T) {
	res := Detect("completely unrelated sentence", defaultProfile())
	if res.Wake {
		t.Fatalf("expected no wake, got %+v", res)
	}
	if res.Reason != ReasonNoAliasMatch {
		t.Fatalf("unexpected reason: %q", res.Reason)
	}
}

func TestDetect_EmptyInput(t *testing.T) {
	res := Detect("   ", defaultProfile())
	if res.Wake {
		t.Fatal("expected no wake for empty input")
	}
	if res.Reason != ReasonEmptyInput {
		t.Fatalf("unexpected reason: %q", res.Reason)
	}
}

func TestDetect_StrictToleranceRejectsNearMiss(t *testing.T) {
	strict := NewProfile([]string{"vega"}, true, SensitivityStrict)
	if res := Detect("veto status please", strict); res.Wake {
		t.Fatalf("expected strict profile to reject two-edit token, got %+v", res)
	}
	lenient := NewProfile([]string{"vega"}, true, SensitivityLenient)
	if res := Detect("veto status please", lenient); !res.Wake {
		t.Fatalf("expected lenient profile to accept two-edit token, got %+v", res)
	}
}

func TestDetect_GreetingRaisesConfidence(t *testing.T) {
	plain := Detect("vee what time is it", defaultProfile())
	greeted := Detect("hey vee what time is it", defaultProfile())
	if !plain.Wake || !greeted.Wake {
		t.Fatalf("both should wake: %+v / %+v", plain, greeted)
	}
	if greeted.Confidence <= plain.Confidence {
		t.Fatalf("greeting should raise confidence: plain=%f greeted=%f", plain.Confidence, greeted.Confidence)
	}
}

func TestDetect_PhoneticClassesCollapse(t *testing.T) {
	// Labial stop and fricative swaps land on the same normalized string.
	for _, heard := range []string{"pi", "fi", "vi", "bi"} {
		res := Detect(heard+" hello", defaultProfile())
		if !res.Wake {
			t.Fatalf("expected %q to wake against alias vi, got %+v", heard, res)
		}
	}
}

func TestDetect_PunctuationStripped(t *testing.T) {
	res := Detect("Vee, play something", defaultProfile())
	if !res.Wake {
		t.Fatalf("expected wake with trailing punctuation, got %+v", res)
	}
}

func TestDetect_GreetingAloneIsNotWake(t *testing.T) {
	// A lone particle must not be consumed into nothing and then matched.
	res := Detect("hey", NewProfile([]string{"hei"}, true, SensitivityLenient))
	if !res.Wake {
		// "hey" stays the candidate token when it is the only token, and may
		// legitimately match an alias that normalizes to the same string.
		t.Fatalf("expected lone token to still be compared, got %+v", res)
	}
}

func TestNewProfile_DropsEmptyAliases(t *testing.T) {
	p := NewProfile([]string{" ", "vi", ""}, false, SensitivityDefault)
	if len(p.Aliases) != 1 || p.Aliases[0] != "vi" {
		t.Fatalf("unexpected aliases: %+v", p.Aliases)
	}
	if p.EngagementRequired {
		t.Fatal("engagement flag not carried")
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"bee", "fee", 1},
		{"kitten", "sitting", 3},
		{"vee", "vee", 0},
	}
	for _, tc := range cases {
		if got := editDistance(tc.a, tc.b); got != tc.want {
			t.Fatalf("editDistance(%q,%q)=%d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
