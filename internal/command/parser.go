package command

import "strings"

// ParseCommands extracts command strings from a normalized transcript. The
// activation word acts as a delimiter: everything between one standalone
// occurrence and the next (or the end of the transcript) is one command.
// Speech before the first activation word is conversation, not command, and
// is dropped. A transcript with no standalone activation word yields nothing;
// in particular the word embedded in a longer token ("activated") does not
// activate.
func ParseCommands(text, activationWord string) []string {
	activation := strings.ToLower(strings.TrimSpace(activationWord))
	if activation == "" {
		return nil
	}

	var (
		commands []string
		current  []string
		active   bool
	)

	flush := func() {
		if len(current) > 0 {
			commands = append(commands, strings.Join(current, " "))
			current = nil
		}
	}

	for _, token := range strings.Fields(strings.ToLower(text)) {
		if token == activation {
			if active {
				flush()
			}
			active = true
			continue
		}
		if active {
			current = append(current, token)
		}
	}
	flush()

	return commands
}
