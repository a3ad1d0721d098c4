package desktop

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/supersurf/supersurf/internal/observability"
)

// Controller drives the real desktop through robotgo. It implements Input,
// Screen, and Windows.
type Controller struct{}

func NewController() *Controller {
	return &Controller{}
}

func (c *Controller) MoveTo(p Point) {
	robotgo.Move(p.X, p.Y)
}

func (c *Controller) Click() {
	robotgo.Click("left")
}

func (c *Controller) TypeText(text string) {
	robotgo.TypeStr(text)
}

func (c *Controller) PressKey(key string) {
	if err := robotgo.KeyTap(key); err != nil {
		l := observability.WithComponent("desktop")
		l.Warn().Err(err).Str("key", key).Msg("key tap failed")
	}
}

// CaptureTo writes a full screenshot of the primary display to path.
func (c *Controller) CaptureTo(path string) error {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return fmt.Errorf("capture screen: %w", err)
	}
	if err := robotgo.Save(img, path); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}
	return nil
}

func (c *Controller) Size() (int, int) {
	return robotgo.GetScreenSize()
}
