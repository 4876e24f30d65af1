package components

import (
	"strings"
	"testing"
)

func TestProgressBarCells(t *testing.T) {
	tests := []struct {
		name   string
		bar    ProgressBar
		filled int
		empty  int
	}{
		{"half", ProgressBar{Percent: 0.5, Width: 20}, 10, 10},
		{"full", ProgressBar{Percent: 1, Width: 10}, 10, 0},
		{"overflow clamps", ProgressBar{Percent: 1.7, Width: 10}, 10, 0},
		{"negative clamps", ProgressBar{Percent: -0.3, Width: 10}, 0, 10},
		{"minimum width", ProgressBar{Percent: 0.5, Width: 1}, 2, 2},
		{"percent suffix", ProgressBar{Percent: 0.5, Width: 26, ShowPercent: true}, 10, 10},
		{"label", ProgressBar{Label: "acc", Percent: 0, Width: 15}, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filled, empty := tt.bar.Cells()
			if filled != tt.filled || empty != tt.empty {
				t.Errorf("Cells() = (%d, %d), want (%d, %d)", filled, empty, tt.filled, tt.empty)
			}
		})
	}
}

func TestProgressBarView(t *testing.T) {
	out := NewProgressBar("Accuracy", 0.75, true, 40).View()
	if !strings.Contains(out, "Accuracy") {
		t.Errorf("missing label in %q", out)
	}
	if !strings.Contains(out, "75%") {
		t.Errorf("missing percent in %q", out)
	}
	if !strings.Contains(out, "█") || !strings.Contains(out, "░") {
		t.Errorf("missing bar cells in %q", out)
	}
}
