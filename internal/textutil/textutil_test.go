package textutil

import "testing"

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Crème brûlée":          "creme-brulee",
		"  Pad Thai (Classic) ": "pad-thai-classic",
		"Phở bò":                "pho-bo",
		"!!!":                   "untitled",
		"Mapo Tofu -- spicy":    "mapo-tofu-spicy",
	}
	for input, want := range tests {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeNames(t *testing.T) {
	names, repeats := NormalizeNames([]string{" Pad  Thai", "Pad Thai", "", "pad thai", "Tom Yum "})
	if repeats != 1 {
		t.Fatalf("expected 1 repeat, got %d", repeats)
	}
	want := []string{"Pad Thai", "pad thai", "Tom Yum"}
	if len(names) != len(want) {
		t.Fatalf("unexpected names %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
