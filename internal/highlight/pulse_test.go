package highlight

import "testing"

func TestPulse_Next(t *testing.T) {
	tests := []struct {
		name string
		in   Pulse
		want Pulse
	}{
		{"grows and fades", Pulse{1, 1}, Pulse{11, 0.99}},
		{"flash after 11", Pulse{11, 0.5}, Pulse{21, 1}},
		{"flash after 21", Pulse{21, 0.2}, Pulse{31, 1}},
		{"no flash at 10", Pulse{10, 0.5}, Pulse{20, 0.49}},
		{"no flash at 30", Pulse{30, 0.5}, Pulse{40, 0.49}},
		{"resets at max", Pulse{MaxDimension, 0.4}, Pulse{MinDimension, 0.4}},
		{"clamps to zero", Pulse{500, 0.005}, Pulse{510, 0}},
		{"clamps to one", Pulse{1000.5, 1.5}, Pulse{MinDimension, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Next()
			if got.Dimension != tt.want.Dimension {
				t.Fatalf("Dimension = %v, want %v", got.Dimension, tt.want.Dimension)
			}
			if diff := got.Opacity - tt.want.Opacity; diff > 1e-6 || diff < -1e-6 {
				t.Fatalf("Opacity = %v, want %v", got.Opacity, tt.want.Opacity)
			}
		})
	}
}

func TestPulse_CycleStaysInRange(t *testing.T) {
	p := Pulse{Dimension: MinDimension, Opacity: 1}
	resets := 0
	for i := 0; i < 500; i++ {
		next := p.Next()
		if next.Dimension < MinDimension || next.Dimension > MaxDimension+GrowthStep {
			t.Fatalf("tick %d: dimension %v out of range", i, next.Dimension)
		}
		if next.Opacity < 0 || next.Opacity > 1 {
			t.Fatalf("tick %d: opacity %v out of range", i, next.Opacity)
		}
		if next.Dimension == MinDimension {
			resets++
		} else if next.Dimension <= p.Dimension {
			t.Fatalf("tick %d: dimension did not grow (%v -> %v)", i, p.Dimension, next.Dimension)
		}
		p = next
	}
	if resets == 0 {
		t.Fatalf("pulse never reset to the minimum dimension")
	}
}
