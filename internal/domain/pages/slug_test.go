package pages

import "testing"

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"My First Page ":           "my-first-page",
		"  Hello_World  ":          "hello-world",
		"multiple   spaces__here":  "multiple-spaces-here",
		"--Leading and trailing--": "leading-and-trailing",
		"a---b":                    "a-b",
		"Café crème":               "caf-crme",
		"ＡＢＣ":                      DefaultSlug,
		"Ⅻ chapter":                "chapter",
		"x²":                       "x",
		"non\u00a0breaking":        "non-breaking",
		"ideographic\u3000space":   "ideographic-space",
		"C++ & Go!":                "c-go",
		"":                         DefaultSlug,
		"!!!":                      DefaultSlug,
		"日本語":                      DefaultSlug,
		"Release v2.0":             "release-v20",
	}

	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q): expected %q, got %q", input, want, got)
		}
	}
}

func TestSlugifyIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"My First Page ",
		"Ünïcödé_names  everywhere",
		"-_- weird -_-",
		"tabs\tand\nnewlines",
		"ALL CAPS 123",
		"",
	}

	for _, input := range inputs {
		once := Slugify(input)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestParseSortKeyFallsBackToDefault(t *testing.T) {
	t.Parallel()

	if got := ParseSortKey(" NAME-ASC "); got != SortNameAsc {
		t.Fatalf("expected %q, got %q", SortNameAsc, got)
	}
	if got := ParseSortKey("bogus"); got != SortTimeDesc {
		t.Fatalf("expected default %q, got %q", SortTimeDesc, got)
	}
}

func TestExcerptStripsMarkupAndTruncates(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>ignored</title><style>p{}</style></head><body><h1>Title</h1>
<p>Some   <b>bold</b> text.</p><script>alert(1)</script></body></html>`
	if got := Excerpt(html); got != "Title Some bold text." {
		t.Fatalf("unexpected excerpt %q", got)
	}

	long := "<p>"
	for i := 0; i < 50; i++ {
		long += "word "
	}
	long += "</p>"

	got := []rune(Excerpt(long))
	if len(got) > excerptLength+1 || got[len(got)-1] != '…' {
		t.Fatalf("expected excerpt of at most %d runes ending with ellipsis, got %q", excerptLength+1, string(got))
	}
}
