package tgui

import "testing"

func TestTruncRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hell…"},
		{"héllo", 2, "hé…"},
		{"abc", 0, ""},
	}
	for _, c := range cases {
		if got := TruncRunes(c.in, c.n); got != c.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestCutRunes(t *testing.T) {
	if got := CutRunes("₹₹₹₹", 2); got != "₹₹" {
		t.Fatalf("CutRunes = %q", got)
	}
	if got := CutRunes("ab", 5); got != "ab" {
		t.Fatalf("CutRunes = %q", got)
	}
	if got := RuneLen("₹12"); got != 3 {
		t.Fatalf("RuneLen = %d", got)
	}
}

func TestEscaping(t *testing.T) {
	if got := B("a<b"); got != "<b>a&lt;b</b>" {
		t.Fatalf("B = %q", got)
	}
	if got := MdEsc("a_b*c"); got != `a\_b\*c` {
		t.Fatalf("MdEsc = %q", got)
	}
	if got := JoinH("\n", B("x"), "", Code("y")); got != "<b>x</b>\n<code>y</code>" {
		t.Fatalf("JoinH = %q", got)
	}
}

func TestMarkdownEntities(t *testing.T) {
	cases := []struct{ got, want string }{
		{MdB("[SIGNAL]"), "*[SIGNAL]*"},
		{MdB("a*b_c"), "*a∗b_c*"},
		{MdI("2026_10"), "_2026‗10_"},
		{MdCode("x`y"), "`x'y`"},
		{MdEsc("a*b_[c]`"), "a\\*b\\_\\[c]\\`"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("got %q, want %q", c.got, c.want)
		}
	}
}
