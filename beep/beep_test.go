package beep

import "testing"

func TestTickLengthAndEnvelope(t *testing.T) {
	samples := tick(1000, 0.1, 0.5, 50)
	if want := int(sampleRate * 0.1); len(samples) != want {
		t.Fatalf("len = %d, want %d", len(samples), want)
	}

	// The decay envelope must make the tail quieter than the head.
	var head, tail int32
	for _, s := range samples[:100] {
		if s < 0 {
			s = -s
		}
		if int32(s) > head {
			head = int32(s)
		}
	}
	for _, s := range samples[len(samples)-100:] {
		if s < 0 {
			s = -s
		}
		if int32(s) > tail {
			tail = int32(s)
		}
	}
	if tail >= head {
		t.Fatalf("envelope does not decay: head peak %d, tail peak %d", head, tail)
	}
}

func TestDoubleBeepLength(t *testing.T) {
	got := doubleBeep(440, 0.05, 0.02, 0.5, 30)
	want := 2*int(sampleRate*0.05) + int(sampleRate*0.02)
	if len(got) != want {
		t.Fatalf("len = %d, want %d", len(got), want)
	}
}
