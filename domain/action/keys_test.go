package action

import "testing"

func TestParseVK(t *testing.T) {
	cases := []struct {
		in   string
		want byte
	}{
		{"z", 'Z'},
		{" Z ", 'Z'},
		{"a", 'A'},
		{"5", '5'},
		{"F1", 0x70},
		{"f3", 0x72},
		{"F10", 0x79},
		{"F12", 0x7B},
		{"", 'Z'},
		{"NumpadPlus", 'Z'},
	}
	for _, c := range cases {
		if got := ParseVK(c.in); got != c.want {
			t.Errorf("ParseVK(%q) = 0x%X, want 0x%X", c.in, got, c.want)
		}
	}
}
