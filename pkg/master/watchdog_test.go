package master

import "testing"

func TestEncodeWatchdog(t *testing.T) {
	cases := []int{10, 100, 300, 5000, 65025}
	for _, ms := range cases {
		fact1, fact2, err := EncodeWatchdog(ms)
		if err != nil {
			t.Fatalf("EncodeWatchdog(%d): %v", ms, err)
		}
		if fact1 == 0 || fact2 == 0 {
			t.Fatalf("EncodeWatchdog(%d) = (%d, %d), want both >= 1", ms, fact1, fact2)
		}
		encoded := int(fact1) * int(fact2) * 10
		if encoded < ms {
			t.Fatalf("EncodeWatchdog(%d) = (%d, %d) encodes %dms, want >= %dms", ms, fact1, fact2, encoded, ms)
		}
	}
}

func TestEncodeWatchdogDisabled(t *testing.T) {
	fact1, fact2, err := EncodeWatchdog(0)
	if err != nil || fact1 != 0 || fact2 != 0 {
		t.Fatalf("EncodeWatchdog(0) = (%d, %d, %v), want (0, 0, nil)", fact1, fact2, err)
	}
}
