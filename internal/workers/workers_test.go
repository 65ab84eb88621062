package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
	}{
		{"CPU bound", 1.0, 0},
		{"IO bound", 2.0, 0},
		{"Mixed", 1.5, 0},
		{"With limit", 2.0, 2},
		{"Tiny multiplier", 0.1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, want at least 1", tt.multiplier, tt.limit, got)
			}
			if tt.limit > 0 && got > tt.limit {
				t.Errorf("Count(%v, %d) = %d, exceeds limit", tt.multiplier, tt.limit, got)
			}
			if tt.limit == 0 {
				want := int(float64(available) * tt.multiplier)
				if want < 1 {
					want = 1
				}
				if got != want {
					t.Errorf("Count(%v, 0) = %d, want %d", tt.multiplier, got, want)
				}
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "3")

	if got := Count(1.0, 0); got != 3 {
		t.Errorf("Count with SCAN_WORKERS=3 = %d, want 3", got)
	}

	// Limit still caps the override
	if got := Count(1.0, 2); got != 2 {
		t.Errorf("Count with SCAN_WORKERS=3 and limit 2 = %d, want 2", got)
	}
}

func TestCountEnvOverrideInvalid(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "banana")

	available := runtime.GOMAXPROCS(0)
	if got := Count(1.0, 0); got != available {
		t.Errorf("Count with invalid override = %d, want %d", got, available)
	}
}

func TestHelpers(t *testing.T) {
	if got := ForCPU(4); got < 1 || got > 4 {
		t.Errorf("ForCPU(4) = %d, out of range", got)
	}
	if got := ForIO(8); got < 1 || got > 8 {
		t.Errorf("ForIO(8) = %d, out of range", got)
	}
	if got := ForMixed(6); got < 1 || got > 6 {
		t.Errorf("ForMixed(6) = %d, out of range", got)
	}
}
