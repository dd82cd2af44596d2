package inference

import "testing"

func TestConfidence(t *testing.T) {
	if got := Confidence(0, 0, 0); got != 0.0 {
		t.Errorf("Confidence(0,0) = %v, want 0", got)
	}
	if got := Confidence(100, 100, 0); got != 1.0 {
		t.Errorf("Confidence(100,100) = %v, want 1", got)
	}

	// Prior-blended score sits strictly between the prior and the ratio.
	got := Confidence(50, 100, 0.5)
	if got <= 0.4 || got >= 0.6 {
		t.Errorf("Confidence(50,100,0.5) = %v, want in (0.4, 0.6)", got)
	}

	// Ratio-only path clamps.
	if got := Confidence(200, 100, 0); got != 1.0 {
		t.Errorf("over-full ratio not clamped: %v", got)
	}
	if got := Confidence(0, 100, 0); got != 0.0 {
		t.Errorf("Confidence(0,100) = %v, want 0", got)
	}
}
