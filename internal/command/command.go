package command

import (
	"fmt"
	"strings"
)

// Verb identifies what a spoken command does. Dispatch switches on the verb,
// never on raw strings, so an unhandled verb is a compile-time smell rather
// than a silent no-op.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbType
	VerbClick
	VerbLearn
	VerbChange
	VerbStop
)

func (v Verb) String() string {
	switch v {
	case VerbType:
		return "type"
	case VerbClick:
		return "click"
	case VerbLearn:
		return "learn"
	case VerbChange:
		return "change"
	case VerbStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Command is one parsed spoken command. Only the fields relevant to the verb
// are populated.
type Command struct {
	Verb Verb
	Raw  string

	Text      string // type: text to enter
	Button    string // click, learn: button name
	Selector  string // learn: natural-language description of the target
	Interface string // change: target interface name as spoken
	Project   string // change: optional project hint
}

// Parse converts one command string (already split out of the transcript)
// into a Command.
func Parse(raw string) (Command, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	cmd := Command{Raw: raw}
	args := fields[1:]

	switch fields[0] {
	case "type":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("type command needs text")
		}
		cmd.Verb = VerbType
		cmd.Text = strings.Join(args, " ")

	case "click":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("click command needs a button name")
		}
		cmd.Verb = VerbClick
		cmd.Button = args[0]

	case "learn":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("learn command needs a button name and a description")
		}
		cmd.Verb = VerbLearn
		cmd.Button = args[0]
		cmd.Selector = strings.Join(args[1:], " ")

	case "change":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("change command needs an interface name")
		}
		cmd.Verb = VerbChange
		cmd.Interface = args[0]
		if len(args) > 1 {
			cmd.Project = strings.Join(args[1:], " ")
		}

	case "stop":
		cmd.Verb = VerbStop

	default:
		return Command{}, fmt.Errorf("unknown command verb %q", fields[0])
	}

	return cmd, nil
}
