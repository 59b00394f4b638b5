package phone

import "testing"

func TestNormalizeE164FormatsNationalNumbers(t *testing.T) {
	cases := map[string]string{
		"(650) 253-0000":   "+16502530000",
		"650.253.0000":     "+16502530000",
		"+1 650.253.0000":  "+16502530000",
		"  6502530000  ":   "+16502530000",
		"+44 20 7031 3000": "+442070313000",
	}

	for input, want := range cases {
		if got := NormalizeE164(input); got != want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeE164ReturnsInputWhenUnparseable(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"   ":         "",
		"anonymous":   "anonymous",
		" 12 ":        "12",
		"not a phone": "not a phone",
	}

	for input, want := range cases {
		if got := NormalizeE164(input); got != want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizerUsesConfiguredRegion(t *testing.T) {
	n := NewNormalizer("nl")
	if got := n.Normalize("06 12345678"); got != "+31612345678" {
		t.Fatalf("expected Dutch mobile to normalize, got %q", got)
	}

	fallback := NewNormalizer("")
	if got := fallback.Normalize("(650) 253-0000"); got != "+16502530000" {
		t.Fatalf("expected default region fallback, got %q", got)
	}
}
