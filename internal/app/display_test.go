package app

import (
	"reflect"
	"testing"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
)

func TestStatusLines(t *testing.T) {
	tests := []struct {
		name string
		snap StatusSnapshot
		want []string
	}{
		{
			name: "stopped",
			snap: StatusSnapshot{Location: geo.NewPoint(11.5, 48.1, 3)},
			want: []string{"Location", "stopped"},
		},
		{
			name: "waiting for fix",
			snap: StatusSnapshot{Started: true, Heading: 12.34},
			want: []string{"Location", "Waiting...", "HDG  12.3"},
		},
		{
			name: "south west without alerts",
			snap: StatusSnapshot{Started: true, Location: geo.NewPoint(-58.381592, -34.603722, 25), Heading: 270},
			want: []string{"34.60372S", "58.38159W", "HDG 270.0 Z  25", "No alerts"},
		},
		{
			name: "most severe alert shown",
			snap: StatusSnapshot{
				Started:  true,
				Location: geo.NewPoint(11.576124, 48.137154, 3),
				Alerts: []alerts.Alert{
					{Condition: "depot", Level: alerts.Low},
					{Condition: "gate", Level: alerts.Critical},
					{Condition: "road", Level: alerts.High},
				},
			},
			want: []string{"48.13715N", "11.57612E", "HDG   0.0 Z   3", "!3 gate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusLines(tt.snap)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("statusLines() = %q, want %q", got, tt.want)
			}
			if len(got) > screenLines {
				t.Fatalf("%d lines do not fit the screen", len(got))
			}
		})
	}
}

func TestRenderLines(t *testing.T) {
	blank := renderLines(nil)
	for _, b := range blank.Pix {
		if b != 0 {
			t.Fatal("blank frame has pixels set")
		}
	}

	img := renderLines([]string{"No alerts"})
	if b := img.Bounds(); b.Dx() != screenWidth || b.Dy() != screenHeight {
		t.Fatalf("bounds = %v", b)
	}
	lit := 0
	for _, b := range img.Pix {
		if b != 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatal("rendered text left the frame blank")
	}
}
