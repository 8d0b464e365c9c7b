package template

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		vars   map[string]string
		want   string
	}{
		{
			name:   "empty prompt",
			prompt: "",
			vars:   map[string]string{"issue": "body"},
			want:   "",
		},
		{
			name:   "nil vars",
			prompt: "Summarize:\n{{issue}}",
			vars:   nil,
			want:   "Summarize:\n{{issue}}",
		},
		{
			name:   "issue in the middle",
			prompt: "Summarize this issue:\n\n{{issue}}\n\nOne paragraph only.",
			vars:   map[string]string{"issue": "Title: Crash\nBody: boom"},
			want:   "Summarize this issue:\n\nTitle: Crash\nBody: boom\n\nOne paragraph only.",
		},
		{
			name:   "repeated placeholder",
			prompt: "{{issue}} / {{issue}}",
			vars:   map[string]string{"issue": "x"},
			want:   "x / x",
		},
		{
			name:   "unknown placeholder left alone",
			prompt: "{{issue}} for {{team}}",
			vars:   map[string]string{"issue": "x"},
			want:   "x for {{team}}",
		},
		{
			name:   "value containing a placeholder is not expanded",
			prompt: "{{issue}}",
			vars:   map[string]string{"issue": "use {{issue}} in templates"},
			want:   "use {{issue}} in templates",
		},
		{
			name:   "malformed placeholders ignored",
			prompt: "{{ issue }} {issue} {{1abc}}",
			vars:   map[string]string{"issue": "x"},
			want:   "{{ issue }} {issue} {{1abc}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.prompt, tt.vars); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		prompt string
		want   []string
	}{
		{prompt: "no placeholders", want: nil},
		{prompt: "{{issue}}", want: []string{"issue"}},
		{prompt: "{{b}} {{a}} {{b}}", want: []string{"b", "a"}},
		{prompt: "{{ spaced }}", want: nil},
	}

	for _, tt := range tests {
		if got := Placeholders(tt.prompt); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Placeholders(%q) = %v, want %v", tt.prompt, got, tt.want)
		}
	}
}

func TestContains(t *testing.T) {
	if !Contains("Summarize {{issue}}", "issue") {
		t.Error("Contains() = false, want true")
	}
	if Contains("Summarize {{issues}}", "issue") {
		t.Error("Contains() = true for a different name")
	}
}
