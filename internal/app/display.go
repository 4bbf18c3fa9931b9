package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
)

const (
	screenWidth  = 128
	screenHeight = 64
	lineHeight   = 13
	screenLines  = screenHeight / lineHeight
)

// StatusSnapshot is what the OLED status screen shows.
type StatusSnapshot struct {
	Started  bool
	Location geo.Point
	Heading  float64
	Alerts   []alerts.Alert
}

// RunStatusDisplay drives an SSD1306 on the default I²C bus until ctx is
// done, redrawing from snapshot every interval.
func RunStatusDisplay(ctx context.Context, interval time.Duration, snapshot func() StatusSnapshot) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Println("display: status display initialized")

	if err := drawLines(dev, []string{"", "  DSA handheld", "  Looking for", "  position..."}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := drawLines(dev, statusLines(snapshot())); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

// statusLines lays out a snapshot as at most screenLines text lines:
// position, heading, then the most severe active alert.
func statusLines(s StatusSnapshot) []string {
	if !s.Started {
		return []string{"Location", "stopped"}
	}
	if s.Location.IsEmpty() {
		return []string{"Location", "Waiting...", fmt.Sprintf("HDG %5.1f", s.Heading)}
	}

	latDir, lat := "N", s.Location.Y
	if lat < 0 {
		latDir, lat = "S", -lat
	}
	lonDir, lon := "E", s.Location.X
	if lon < 0 {
		lonDir, lon = "W", -lon
	}

	lines := []string{
		fmt.Sprintf("%.5f%s", lat, latDir),
		fmt.Sprintf("%.5f%s", lon, lonDir),
		fmt.Sprintf("HDG %5.1f Z%4.0f", s.Heading, s.Location.Z),
	}

	switch len(s.Alerts) {
	case 0:
		lines = append(lines, "No alerts")
	default:
		worst := s.Alerts[0]
		for _, a := range s.Alerts[1:] {
			if a.Level > worst.Level {
				worst = a
			}
		}
		lines = append(lines, fmt.Sprintf("!%d %s", len(s.Alerts), worst.Condition))
	}

	if len(lines) > screenLines {
		lines = lines[:screenLines]
	}
	return lines
}

func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, screenWidth, screenHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

func drawLines(dev *ssd1306.Dev, lines []string) error {
	img := renderLines(lines)
	return dev.Draw(dev.Bounds(), img, image.Point{})
}
