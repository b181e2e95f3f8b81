package config

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"demo", "demo"},
		{"My Cool Project!", "my_cool_project"},
		{"Café Héros", "cafe_heros"},
		{"--already--separated--", "already_separated"},
		{"MiXeD 123 case", "mixed_123_case"},
		{"  spaces  everywhere  ", "spaces_everywhere"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
