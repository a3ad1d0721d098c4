package desktop

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/supersurf/supersurf/internal/observability"
)

// appNames maps interface names to the application names the OS knows them
// by. Unlisted interfaces fall back to a title-cased guess.
var appNames = map[string]string{
	"windsurf": "Windsurf",
	"cursor":   "Cursor",
	"lovable":  "Google Chrome",
}

// BringToFront focuses the application backing the named interface. On
// macOS this goes through AppleScript, which also lets a window whose title
// contains the hint be raised; elsewhere robotgo activates by name.
func (c *Controller) BringToFront(app, titleHint string) error {
	name := appName(app)

	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf("tell application %q to activate", name)
		if out, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
			return fmt.Errorf("activate %s: %s: %w", name, strings.TrimSpace(string(out)), err)
		}
		if titleHint != "" {
			c.raiseWindow(name, titleHint)
		}
		return nil
	}

	if err := robotgo.ActiveName(name); err != nil {
		return fmt.Errorf("activate %s: %w", name, err)
	}
	return nil
}

// raiseWindow raises the frontmost window whose title contains the hint.
// Best effort; the application is already focused if this fails.
func (c *Controller) raiseWindow(app, titleHint string) {
	script := fmt.Sprintf(`tell application "System Events"
	tell process %q
		repeat with w in windows
			if name of w contains %q then
				perform action "AXRaise" of w
				exit repeat
			end if
		end repeat
	end tell
end tell`, app, titleHint)

	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		l := observability.WithComponent("desktop")
		l.Debug().Err(err).
			Str("app", app).Str("hint", titleHint).Msg("window raise failed")
	}
}

func appName(iface string) string {
	key := strings.ToLower(strings.TrimSpace(iface))
	if name, ok := appNames[key]; ok {
		return name
	}
	if key == "" {
		return iface
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
