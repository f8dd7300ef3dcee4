package hint

import (
	"strings"
	"testing"
)

func values(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		if c.Display != c.Value {
			panic("display and value differ: " + c.Display)
		}
		out[i] = c.Value
	}
	return out
}

func TestMatch_EmptyKeyReturnsAll(t *testing.T) {
	for _, key := range []string{"", "   ", "\u200b", " \u200b "} {
		got := values(Match(key))
		if strings.Join(got, ",") != strings.Join(languages, ",") {
			t.Errorf("Match(%q): got %d entries, want all %d in order", key, len(got), len(languages))
		}
	}
}

func TestMatch_SubsequenceProperty(t *testing.T) {
	for _, key := range []string{"py", "JS", " script ", "sql", "\u200bgo", "zzz", "-"} {
		norm := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(key, "\u200b", "")))
		var want []string
		for _, v := range languages {
			if strings.Contains(strings.ToLower(v), norm) {
				want = append(want, v)
			}
		}
		got := values(Match(key))
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Match(%q):\n got  %v\n want %v", key, got, want)
		}
	}
}

func TestMatch_Examples(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"pyth", []string{"python", "python-repl"}},
		{"zzz", []string{}},
		{"JULIA", []string{"julia", "julia-repl"}},
	}
	for _, tt := range tests {
		got := values(Match(tt.key))
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Match(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestMatchIn_CaseInsensitiveVocabulary(t *testing.T) {
	got := values(MatchIn([]string{"Go", "TypeScript", "rust"}, "S"))
	if strings.Join(got, ",") != "TypeScript,rust" {
		t.Errorf("got %v", got)
	}
}

func TestLanguages_ReturnsCopy(t *testing.T) {
	got := Languages()
	got[0] = "changed"
	if Languages()[0] == "changed" || languages[0] == "changed" {
		t.Error("vocabulary must not be writable through Languages")
	}
}

func TestTypedAndKey(t *testing.T) {
	tests := []struct {
		raw, typed, key string
	}{
		{"\u200bPyTh ", "PyTh", "pyth"},
		{"  ", "", ""},
		{"Go", "Go", "go"},
	}
	for _, tt := range tests {
		if got := Typed(tt.raw); got != tt.typed {
			t.Errorf("Typed(%q) = %q, want %q", tt.raw, got, tt.typed)
		}
		if got := Key(tt.raw); got != tt.key {
			t.Errorf("Key(%q) = %q, want %q", tt.raw, got, tt.key)
		}
	}
}
