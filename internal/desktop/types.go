package desktop

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Input performs synthetic mouse and keyboard actions.
type Input interface {
	MoveTo(p Point)
	Click()
	TypeText(text string)
	PressKey(key string)
}

// Screen captures the visible desktop.
type Screen interface {
	// CaptureTo writes a screenshot of the primary display to path.
	CaptureTo(path string) error
	// Size returns the primary display dimensions in pixels.
	Size() (width, height int)
}

// Windows manages application window focus.
type Windows interface {
	// BringToFront focuses the named application, preferring a window whose
	// title contains titleHint when given.
	BringToFront(app, titleHint string) error
}
