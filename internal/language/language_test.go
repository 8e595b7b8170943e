package language

import (
	"slices"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"de":        "de",
		" pt-br":    "pt-BR",
		"ZH-hant":   "zh-Hant",
		"":          "",
		"not a tag": "",
	}
	for input, want := range tests {
		if got := Canonical(input); got != want {
			t.Fatalf("Canonical(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("de"); got != "German" {
		t.Fatalf("DisplayName(de) = %q", got)
	}
	if got := DisplayName("???"); got != "???" {
		t.Fatalf("expected invalid input unchanged, got %q", got)
	}
	if got := Label("fr"); got != "fr (French)" {
		t.Fatalf("Label(fr) = %q", got)
	}
}

func TestNormalizeList(t *testing.T) {
	tags, invalid := NormalizeList([]string{"de,fr", "DE", " ja ", "bad tag"})
	if !slices.Equal(tags, []string{"de", "fr", "ja"}) {
		t.Fatalf("unexpected tags %v", tags)
	}
	if !slices.Equal(invalid, []string{"bad tag"}) {
		t.Fatalf("unexpected invalid %v", invalid)
	}
}
