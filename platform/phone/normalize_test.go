package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	n := NewNormalizer("mk")

	cases := map[string]string{
		"  ":              "",
		"070 123 456":     "+38970123456",
		"+389 70 123 456": "+38970123456",
		"not a number":    "not a number",
	}
	for input, want := range cases {
		if got := n.NormalizeE164(input); got != want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", input, got, want)
		}
	}
}
