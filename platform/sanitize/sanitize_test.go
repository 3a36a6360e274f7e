package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct{ input, want string }{
		{"  Jane   Doe ", "Jane Doe"},
		{"<b>Jane</b>\tDoe", "Jane Doe"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Ana", "alert(1)Ana"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
	}
	for _, tc := range cases {
		if got := Text(tc.input); got != tc.want {
			t.Fatalf("Text(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
