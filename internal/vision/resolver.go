package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/supersurf/supersurf/internal/desktop"
	"github.com/supersurf/supersurf/internal/store"
)

// Resolver locates UI elements on screen by asking the vision model for
// fractional coordinates and scaling them to the display size. Fractions
// sidestep the mismatch between screenshot pixels and screen points on
// high-DPI displays.
type Resolver struct {
	client         *Client
	screen         desktop.Screen
	screenshotsDir string
	maxScreenshots int
}

func NewResolver(client *Client, screen desktop.Screen, screenshotsDir string, maxScreenshots int) *Resolver {
	return &Resolver{
		client:         client,
		screen:         screen,
		screenshotsDir: screenshotsDir,
		maxScreenshots: maxScreenshots,
	}
}

const locateInstructions = `Locate this element in the screenshot: %s

Answer with JSON only, no markdown, in this exact shape:
{"found": <true|false>, "x_percent": <0-100>, "y_percent": <0-100>, "reasoning": "<one short sentence>"}
x_percent and y_percent are the center of the element as a percentage of the image width and height.`

// Resolve returns the screen coordinates of the described element.
func (r *Resolver) Resolve(ctx context.Context, selector string) (desktop.Point, error) {
	if err := os.MkdirAll(r.screenshotsDir, 0o755); err != nil {
		return desktop.Point{}, fmt.Errorf("create screenshots dir: %w", err)
	}
	store.PruneOldFiles(r.screenshotsDir, "locate_*.png", r.maxScreenshots)

	path := filepath.Join(r.screenshotsDir,
		fmt.Sprintf("locate_%s_%s.png", time.Now().Format("20060102-150405"), uuid.New().String()[:8]))
	if err := r.screen.CaptureTo(path); err != nil {
		return desktop.Point{}, fmt.Errorf("capture screen: %w", err)
	}

	content, err := r.client.askAboutImage(ctx, path, fmt.Sprintf(locateInstructions, selector))
	if err != nil {
		return desktop.Point{}, err
	}

	raw, ok := extractJSON(content)
	if !ok {
		return desktop.Point{}, fmt.Errorf("no JSON in locate reply: %q", content)
	}

	var parsed struct {
		Found    bool    `json:"found"`
		XPercent float64 `json:"x_percent"`
		YPercent float64 `json:"y_percent"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return desktop.Point{}, fmt.Errorf("parse locate reply: %w", err)
	}
	if !parsed.Found {
		return desktop.Point{}, fmt.Errorf("element not found: %s", selector)
	}
	if parsed.XPercent < 0 || parsed.XPercent > 100 || parsed.YPercent < 0 || parsed.YPercent > 100 {
		return desktop.Point{}, fmt.Errorf("coordinates out of range: %.1f%%, %.1f%%", parsed.XPercent, parsed.YPercent)
	}

	w, h := r.screen.Size()
	return desktop.Point{
		X: int(parsed.XPercent / 100 * float64(w)),
		Y: int(parsed.YPercent / 100 * float64(h)),
	}, nil
}
