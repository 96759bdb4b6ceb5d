package scanner

import "testing"

func TestParseLink(t *testing.T) {
	cases := []struct {
		value string
		want  Link
	}{
		{value: "img/a.png", want: Link{Path: "img/a.png"}},
		{value: "./a.html?x=1#top", want: Link{Path: "./a.html", Suffix: "?x=1#top", DotSlash: true}},
		{value: "docs/", want: Link{Path: "docs/", Dir: true}},
		{value: `img\Logo.JPG`, want: Link{Path: "img/Logo.JPG", Backslash: true}},
		{value: "read%20me.html", want: Link{Path: "read me.html", Encoded: true}},
		{value: "bad%zz.html", want: Link{Path: "bad%zz.html"}},
		{value: "#frag", want: Link{Suffix: "#frag"}},
	}
	for _, tc := range cases {
		if got := ParseLink(tc.value); got != tc.want {
			t.Errorf("ParseLink(%q) = %+v, want %+v", tc.value, got, tc.want)
		}
	}
}

func TestLineIndex(t *testing.T) {
	idx := NewLineIndex([]byte("a\nbc\n\nd"))
	cases := map[int]int{0: 1, 1: 1, 2: 2, 4: 2, 5: 3, 6: 4}
	for offset, want := range cases {
		if got := idx.Line(offset); got != want {
			t.Errorf("Line(%d) = %d, want %d", offset, got, want)
		}
	}
}
