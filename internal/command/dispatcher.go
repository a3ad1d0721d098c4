package command

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/desktop"
	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/profiles"
)

// Resolver turns a natural-language description of a UI element into screen
// coordinates, typically by asking a vision model about a screenshot.
type Resolver interface {
	Resolve(ctx context.Context, selector string) (desktop.Point, error)
}

// Enhancer rewrites a terse spoken prompt into a fuller one before it is
// typed into the IDE.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string) (string, error)
}

// Sounds plays audible feedback.
type Sounds interface {
	Error()
	Say(text string)
}

// MonitorStarter begins watching the active interface after a prompt is
// submitted. done fires exactly once when the interface finishes or needs
// the user.
type MonitorStarter interface {
	Start(ctx context.Context, profile *profiles.Profile, done func())
}

// Result reports what a dispatched command did. Monitoring means a monitor
// session owns the completion callback and the pipeline must stay paused;
// Stop means the user asked to shut the assistant down.
type Result struct {
	OK         bool
	Monitoring bool
	Stop       bool
}

// Session is the dispatcher's mutable state: the active interface and
// project, plus a bounded history of executed commands.
type Session struct {
	mu        sync.Mutex
	iface     string
	project   string
	history   []string
	cap       int
	lastStamp time.Time
}

func NewSession(defaultInterface string, historyCap int) *Session {
	return &Session{iface: defaultInterface, cap: historyCap}
}

func (s *Session) Interface() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iface
}

func (s *Session) Project() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

func (s *Session) setTarget(iface, project string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iface = iface
	if project != "" {
		s.project = project
	}
}

// record appends to the history, evicting the oldest entry past the cap.
func (s *Session) record(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, raw)
	if s.cap > 0 && len(s.history) > s.cap {
		s.history = s.history[len(s.history)-s.cap:]
	}
	s.lastStamp = time.Now()
}

// History returns a copy of the executed command history, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// Deps are the dispatcher's collaborators. Sounds must be non-nil; the
// others may be nil when the corresponding capability is not configured,
// and commands needing them fail audibly.
type Deps struct {
	Resolver Resolver
	Enhancer Enhancer
	Input    desktop.Input
	Windows  desktop.Windows
	Sounds   Sounds
	Monitors MonitorStarter
}

// Dispatcher executes parsed commands against the desktop.
type Dispatcher struct {
	registry *profiles.Registry
	session  *Session
	deps     Deps
	enhance  bool
	log      zerolog.Logger

	mu      sync.Mutex
	buttons map[string]desktop.Point            // learned via the learn command
	coords  map[string]map[string]desktop.Point // interface -> command -> point
}

// NewDispatcher creates a dispatcher targeting the default interface.
func NewDispatcher(registry *profiles.Registry, session *Session, deps Deps, enhancePrompts bool) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		session:  session,
		deps:     deps,
		enhance:  enhancePrompts,
		log:      observability.WithComponent("dispatcher"),
		buttons:  make(map[string]desktop.Point),
		coords:   make(map[string]map[string]desktop.Point),
	}
}

// InitializeInterface resolves the coordinates for every command selector of
// the named interface. Best effort: selectors that fail to resolve are
// logged and retried on the next change command.
func (d *Dispatcher) InitializeInterface(ctx context.Context, name string) error {
	profile, ok := d.registry.Get(name)
	if !ok {
		return &UnknownInterfaceError{Name: name, Known: d.registry.Names()}
	}
	return d.resolveProfile(ctx, profile)
}

// UnknownInterfaceError reports a change/init request for an interface the
// registry does not know.
type UnknownInterfaceError struct {
	Name  string
	Known []string
}

func (e *UnknownInterfaceError) Error() string {
	return "unknown interface " + e.Name + " (known: " + strings.Join(e.Known, ", ") + ")"
}

func (d *Dispatcher) resolveProfile(ctx context.Context, profile *profiles.Profile) error {
	if d.deps.Resolver == nil {
		d.log.Warn().Str("interface", profile.Name).Msg("no resolver configured, skipping coordinate resolution")
		return nil
	}

	resolved := make(map[string]desktop.Point, len(profile.Commands))
	var firstErr error
	for command, selector := range profile.Commands {
		pt, err := d.deps.Resolver.Resolve(ctx, selector)
		if err != nil {
			d.log.Error().Err(err).Str("interface", profile.Name).Str("command", command).
				Msg("failed to resolve command target")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		resolved[command] = pt
		d.log.Info().Str("interface", profile.Name).Str("command", command).
			Int("x", pt.X).Int("y", pt.Y).Msg("resolved command target")
	}

	d.mu.Lock()
	d.coords[profile.Name] = resolved
	d.mu.Unlock()
	return firstErr
}

func (d *Dispatcher) commandPoint(iface, command string) (desktop.Point, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pt, ok := d.coords[iface][command]
	return pt, ok
}

// LearnedButtons returns a copy of the learned button map.
func (d *Dispatcher) LearnedButtons() map[string]desktop.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]desktop.Point, len(d.buttons))
	for k, v := range d.buttons {
		out[k] = v
	}
	return out
}

// Execute runs one command string from the transcript. done is the completion
// callback a monitoring session must invoke; for commands that do not start
// monitoring it is left untouched and the caller resumes the pipeline itself.
func (d *Dispatcher) Execute(ctx context.Context, text string, done func()) Result {
	cmd, err := Parse(text)
	if err != nil {
		d.log.Warn().Err(err).Str("text", text).Msg("unparseable command")
		observability.RecordCommand("unknown", false)
		d.deps.Sounds.Error()
		return Result{}
	}

	d.session.record(text)
	d.log.Info().Str("verb", cmd.Verb.String()).Str("raw", cmd.Raw).Msg("executing command")

	var res Result
	switch cmd.Verb {
	case VerbType:
		res = d.execType(ctx, cmd, done)
	case VerbClick:
		res = d.execClick(cmd)
	case VerbLearn:
		res = d.execLearn(ctx, cmd)
	case VerbChange:
		res = d.execChange(ctx, cmd)
	case VerbStop:
		res = d.execStop()
	default:
		res = Result{}
	}

	observability.RecordCommand(cmd.Verb.String(), res.OK)
	return res
}

// execType focuses the active interface, enters the prompt into its input
// box, submits it, and starts a monitoring session that resumes the pipeline
// when the interface settles.
func (d *Dispatcher) execType(ctx context.Context, cmd Command, done func()) Result {
	iface := d.session.Interface()

	pt, ok := d.commandPoint(iface, "type")
	if !ok {
		d.log.Error().Str("interface", iface).Msg("no resolved input target for interface")
		d.deps.Sounds.Error()
		return Result{}
	}
	if d.deps.Input == nil {
		d.log.Error().Msg("no input backend configured")
		d.deps.Sounds.Error()
		return Result{}
	}

	// Focus is best effort for type: on failure the click below usually
	// lands anyway because the target interface was focused moments ago.
	if d.deps.Windows != nil {
		if err := d.deps.Windows.BringToFront(iface, d.session.Project()); err != nil {
			d.log.Warn().Err(err).Str("interface", iface).Msg("focus failed, typing anyway")
		}
	}

	text := cmd.Text
	if d.enhance && d.deps.Enhancer != nil {
		enhanced, err := d.deps.Enhancer.Enhance(ctx, text)
		if err != nil {
			d.log.Error().Err(err).Msg("prompt enhancement failed")
			observability.RecordError("enhance", "dispatcher")
			d.deps.Sounds.Error()
			return Result{}
		}
		if enhanced != "" {
			text = enhanced
		}
	}

	d.deps.Input.MoveTo(pt)
	d.deps.Input.Click()
	d.deps.Input.TypeText(text)
	d.deps.Input.PressKey("enter")

	if d.deps.Monitors == nil {
		return Result{OK: true}
	}
	if done == nil {
		d.log.Warn().Msg("no completion callback provided, monitor cannot resume the pipeline")
	}

	profile, _ := d.registry.Get(iface)
	d.deps.Monitors.Start(ctx, profile, done)
	return Result{OK: true, Monitoring: true}
}

// execClick clicks a previously learned button. Unknown buttons fail audibly
// without mutating anything.
func (d *Dispatcher) execClick(cmd Command) Result {
	d.mu.Lock()
	pt, ok := d.buttons[cmd.Button]
	d.mu.Unlock()

	if !ok {
		d.log.Warn().Str("button", cmd.Button).Msg("unknown button")
		d.deps.Sounds.Error()
		return Result{}
	}
	if d.deps.Input == nil {
		d.deps.Sounds.Error()
		return Result{}
	}

	d.deps.Input.MoveTo(pt)
	d.deps.Input.Click()
	return Result{OK: true}
}

// execLearn resolves the described element and stores it under the button
// name, overwriting any previous binding.
func (d *Dispatcher) execLearn(ctx context.Context, cmd Command) Result {
	if d.deps.Resolver == nil {
		d.log.Error().Msg("no resolver configured, cannot learn buttons")
		d.deps.Sounds.Error()
		return Result{}
	}

	pt, err := d.deps.Resolver.Resolve(ctx, cmd.Selector)
	if err != nil {
		d.log.Error().Err(err).Str("selector", cmd.Selector).Msg("failed to locate element")
		d.deps.Sounds.Error()
		return Result{}
	}

	d.mu.Lock()
	d.buttons[cmd.Button] = pt
	d.mu.Unlock()

	d.log.Info().Str("button", cmd.Button).Int("x", pt.X).Int("y", pt.Y).Msg("button learned")
	d.deps.Sounds.Say("Learned button " + cmd.Button)
	return Result{OK: true}
}

// execChange switches the active interface. Unlike type, a focus failure
// here aborts the switch: the user explicitly asked for that window, and
// silently continuing against the old one would misdirect every following
// command.
func (d *Dispatcher) execChange(ctx context.Context, cmd Command) Result {
	profile, project, ok := d.matchTarget(cmd)
	if !ok {
		d.log.Warn().Str("spoken", cmd.Interface).
			Strs("known", d.registry.Names()).Msg("unknown interface")
		d.deps.Sounds.Error()
		return Result{}
	}

	if d.deps.Windows != nil {
		if err := d.deps.Windows.BringToFront(profile.Name, project); err != nil {
			d.log.Error().Err(err).Str("interface", profile.Name).Msg("failed to focus interface")
			d.deps.Sounds.Error()
			return Result{}
		}
	}

	if err := d.resolveProfile(ctx, profile); err != nil {
		d.log.Error().Err(err).Str("interface", profile.Name).Msg("failed to resolve interface targets")
		d.deps.Sounds.Error()
		return Result{}
	}

	d.session.setTarget(profile.Name, project)
	d.deps.Sounds.Say("Changed to " + profile.Name)
	return Result{OK: true}
}

// matchTarget resolves the spoken target, preferring the full phrase so a
// two-word variant like "wind surf" is not split into interface and project.
// When the full phrase names the interface there is no project hint.
func (d *Dispatcher) matchTarget(cmd Command) (*profiles.Profile, string, bool) {
	if cmd.Project != "" {
		if p, ok := d.registry.Match(cmd.Interface + " " + cmd.Project); ok {
			return p, "", true
		}
	}
	p, ok := d.registry.Match(cmd.Interface)
	return p, cmd.Project, ok
}

func (d *Dispatcher) execStop() Result {
	d.deps.Sounds.Say("Voice control stopped")
	return Result{OK: true, Stop: true}
}
