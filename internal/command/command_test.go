package command

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Command
		wantErr bool
	}{
		{
			name: "type with text",
			raw:  "type fix the login bug",
			want: Command{Verb: VerbType, Text: "fix the login bug"},
		},
		{
			name:    "type without text",
			raw:     "type",
			wantErr: true,
		},
		{
			name: "click button",
			raw:  "click accept",
			want: Command{Verb: VerbClick, Button: "accept"},
		},
		{
			name:    "click without button",
			raw:     "click",
			wantErr: true,
		},
		{
			name: "learn button with selector",
			raw:  "learn accept the green accept button in the dialog",
			want: Command{Verb: VerbLearn, Button: "accept", Selector: "the green accept button in the dialog"},
		},
		{
			name:    "learn without selector",
			raw:     "learn accept",
			wantErr: true,
		},
		{
			name: "change interface",
			raw:  "change windsurf",
			want: Command{Verb: VerbChange, Interface: "windsurf"},
		},
		{
			name: "change interface with project",
			raw:  "change cursor billing service",
			want: Command{Verb: VerbChange, Interface: "cursor", Project: "billing service"},
		},
		{
			name: "stop",
			raw:  "stop",
			want: Command{Verb: VerbStop},
		},
		{
			name:    "unknown verb",
			raw:     "dance",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected an error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.raw, err)
			}

			tt.want.Raw = tt.raw
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestVerbString(t *testing.T) {
	verbs := map[Verb]string{
		VerbType:    "type",
		VerbClick:   "click",
		VerbLearn:   "learn",
		VerbChange:  "change",
		VerbStop:    "stop",
		VerbUnknown: "unknown",
	}
	for v, want := range verbs {
		if got := v.String(); got != want {
			t.Errorf("Verb(%d).String() = %q, want %q", v, got, want)
		}
	}
}
