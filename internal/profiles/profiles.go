package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Profile describes one controllable interface: where its chat input lives
// (as a natural-language selector resolved by vision), what its busy/idle
// states look like, and which spoken words should match it despite
// transcription drift.
type Profile struct {
	Name        string            `json:"name"`
	Commands    map[string]string `json:"commands"`
	StatePrompt string            `json:"interface_state_prompt"`
	SpokenNames []string          `json:"transcribed_similar_words"`
}

// Registry holds the known interface profiles.
type Registry struct {
	profiles map[string]*Profile
}

// Builtin returns the registry of profiles shipped with the binary.
func Builtin() *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	for _, p := range builtinProfiles() {
		r.profiles[p.Name] = p
	}
	return r
}

// Load reads profiles from a JSON file keyed by interface name. An empty
// path returns the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Builtin(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var raw map[string]*Profile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	r := &Registry{profiles: make(map[string]*Profile, len(raw))}
	for name, p := range raw {
		if p.Name == "" {
			p.Name = name
		}
		r.profiles[strings.ToLower(p.Name)] = p
	}
	if len(r.profiles) == 0 {
		return nil, fmt.Errorf("profiles file %s defines no interfaces", path)
	}
	return r, nil
}

// Get returns the profile with the exact canonical name.
func (r *Registry) Get(name string) (*Profile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Match resolves a spoken interface name to a profile, tolerating the
// transcription variants each profile declares.
func (r *Registry) Match(spoken string) (*Profile, bool) {
	needle := strings.ToLower(strings.TrimSpace(spoken))
	if needle == "" {
		return nil, false
	}

	if p, ok := r.profiles[needle]; ok {
		return p, true
	}
	for _, p := range r.profiles {
		for _, alt := range p.SpokenNames {
			if strings.ToLower(alt) == needle {
				return p, true
			}
		}
	}
	return nil, false
}

// Names returns the canonical interface names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinProfiles() []*Profile {
	return []*Profile{
		{
			Name: "windsurf",
			Commands: map[string]string{
				"type": "the text input box of the Cascade AI assistant panel on the right side of the screen",
			},
			StatePrompt: "This is a screenshot of the Windsurf IDE with the Cascade AI assistant panel open. " +
				"Decide whether the assistant is still generating or working (spinner, streaming text, running tools), " +
				"is waiting for the user to answer a question or approve an action, or has finished its task.",
			SpokenNames: []string{"windsurf", "wind surf", "windsor", "windserve"},
		},
		{
			Name: "cursor",
			Commands: map[string]string{
				"type": "the chat input text box of the AI pane on the right side of the Cursor editor",
			},
			StatePrompt: "This is a screenshot of the Cursor IDE with its AI chat pane open. " +
				"Decide whether the assistant is still generating or working, " +
				"is waiting for the user to answer or approve something, or has finished its task.",
			SpokenNames: []string{"cursor", "curser", "courser"},
		},
		{
			Name: "lovable",
			Commands: map[string]string{
				"type": "the message input box at the bottom of the Lovable chat panel",
			},
			StatePrompt: "This is a screenshot of the Lovable app builder in a browser. " +
				"Decide whether it is still building or generating, " +
				"is waiting for the user to respond, or has finished the requested change.",
			SpokenNames: []string{"lovable", "loveable", "movable", "lovely"},
		},
	}
}
