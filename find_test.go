package retrace

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/retrace/vm"
)

// TestFullMatchImpliesMatch tests that a full match is always an
// anchored match spanning the whole input.
func TestFullMatchImpliesMatch(t *testing.T) {
	cases := []struct {
		pattern string
		input   string
	}{
		{"a|ab", "ab"},
		{`\w+@\w+`, "ada@lovelace"},
		{"(a*)*", "aaaa"},
		{"a{2,4}", "aaa"},
	}

	for _, tc := range cases {
		t.Run(tc.pattern, func(t *testing.T) {
			p := MustCompile(tc.pattern, 0)

			full, err := p.FullMatch(tc.input)
			if err != nil {
				t.Fatal(err)
			}
			if full == nil {
				t.Fatalf("FullMatch(%q) failed", tc.input)
			}
			if full.Start() != 0 || full.End() != len(tc.input) {
				t.Fatalf("FullMatch span = [%d,%d], want whole input", full.Start(), full.End())
			}

			m, err := p.Match(tc.input)
			if err != nil {
				t.Fatal(err)
			}
			if m == nil {
				t.Error("Match failed where FullMatch succeeded")
			}
		})
	}
}

// TestGreedyVsLazy tests the documented spans of a.*b and a.*?b.
func TestGreedyVsLazy(t *testing.T) {
	input := "axbxb"

	greedy, err := MustCompile("a.*b", 0).Match(input)
	if err != nil || greedy == nil {
		t.Fatalf("greedy: m=%v err=%v", greedy, err)
	}
	if greedy.Text() != "axbxb" {
		t.Errorf("greedy matched %q, want %q", greedy.Text(), "axbxb")
	}

	lazy, err := MustCompile("a.*?b", 0).Match(input)
	if err != nil || lazy == nil {
		t.Fatalf("lazy: m=%v err=%v", lazy, err)
	}
	if lazy.Text() != "axb" {
		t.Errorf("lazy matched %q, want %q", lazy.Text(), "axb")
	}
}

// TestBackrefProperty tests `(foo) \1` against its documented inputs.
func TestBackrefProperty(t *testing.T) {
	p := MustCompile(`(foo) \1`, 0)

	m, err := p.Match("foo foo")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Text() != "foo foo" {
		t.Errorf("Match(%q) = %v, want %q", "foo foo", m, "foo foo")
	}

	m, err = p.Match("foofoo")
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("Match(%q) = %q, want no match", "foofoo", m.Text())
	}
}

// TestLookaheadComplement tests that (?=...) and (?!...) partition the
// same inputs.
func TestLookaheadComplement(t *testing.T) {
	pos := MustCompile("Isaac (?=Asimov)", 0)
	neg := MustCompile("Isaac (?!Asimov)", 0)

	for _, input := range []string{"Isaac Asimov", "Isaac Newton", "Isaac ", "Isaac A"} {
		t.Run(input, func(t *testing.T) {
			mp, err := pos.Match(input)
			if err != nil {
				t.Fatal(err)
			}
			mn, err := neg.Match(input)
			if err != nil {
				t.Fatal(err)
			}
			if (mp != nil) == (mn != nil) {
				t.Errorf("positive=%v negative=%v, want exact complement", mp != nil, mn != nil)
			}
		})
	}
}

// TestConditionalEmail tests the conditional-group e-mail pattern.
func TestConditionalEmail(t *testing.T) {
	p := MustCompile(`(<)?(\w+@\w+\.\w+)(?(1)>|$)`, 0)

	tests := []struct {
		input string
		match bool
	}{
		{"hello@zto.com", true},
		{"<hello@zto.com>", true},
		{"hello@zto.com>", false},
		{"<hello@zto.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := p.Match(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if (m != nil) != tt.match {
				t.Errorf("Match(%q) = %v, want %v", tt.input, m != nil, tt.match)
			}
		})
	}
}

// TestFindAllNonOverlap tests non-overlapping scanning and zero-width
// advancement.
func TestFindAllNonOverlap(t *testing.T) {
	t.Run("lazy tags", func(t *testing.T) {
		got, err := MustCompile("<.*?>", 0).FindAll("<b>Important</b>", -1)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"<b>", "</b>"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("FindAll mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("zero-width yields n+1 and terminates", func(t *testing.T) {
		input := "abcd"
		count := 0
		for m, err := range MustCompile("", 0).FindIter(input) {
			if err != nil {
				t.Fatal(err)
			}
			if !m.IsEmpty() {
				t.Fatalf("zero-width pattern matched %q", m.Text())
			}
			count++
			if count > len(input)+1 {
				t.Fatal("iterator did not terminate")
			}
		}
		if count != len(input)+1 {
			t.Errorf("got %d matches, want %d", count, len(input)+1)
		}
	})
}

// TestCompileDeterministic tests that two compilations of one pattern
// behave identically.
func TestCompileDeterministic(t *testing.T) {
	pattern := `(?P<user>\w+)@(?P<host>\w+(?:\.\w+)+)`
	inputs := []string{
		"ada@lovelace.example.com",
		"no match here",
		"x@y.z trailing",
		"",
	}

	a := MustCompile(pattern, 0)
	b := MustCompile(pattern, 0)

	for _, input := range inputs {
		ma, err := a.Search(input)
		if err != nil {
			t.Fatal(err)
		}
		mb, err := b.Search(input)
		if err != nil {
			t.Fatal(err)
		}
		if (ma == nil) != (mb == nil) {
			t.Fatalf("Search(%q): one program matched, the other did not", input)
		}
		if ma == nil {
			continue
		}
		if ma.Text() != mb.Text() || !cmp.Equal(ma.Groups(), mb.Groups()) {
			t.Errorf("Search(%q): %q/%v vs %q/%v", input, ma.Text(), ma.Groups(), mb.Text(), mb.Groups())
		}
	}
}

// TestIgnoreCaseClassInteraction tests negated-class behavior under
// IGNORECASE: folding applies before negation.
func TestIgnoreCaseClassInteraction(t *testing.T) {
	input := "Ipod"

	m, err := MustCompile(`[^aeiou]\w+`, 0).Match(input)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Text() != "Ipod" {
		t.Fatalf("without IGNORECASE: %v, want %q", m, "Ipod")
	}

	// Under IGNORECASE the leading 'I' folds to 'i', a vowel, so the
	// negated class reject and the match starts later.
	m, err = MustCompile(`[^aeiou]\w+`, IGNORECASE).Match(input)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("with IGNORECASE matched %q at 0, want no anchored match", m.Text())
	}
}

// TestSearch tests unanchored scanning, including prefilter-backed
// patterns.
func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    string // "-" for no match
		start   int
	}{
		{"literal prefix", "needle", "in a haystack a needle", "needle", 16},
		{"leading verbose group", "(?x)a b", "xx ab", "ab", 3},
		{"alternation prefixes", "cat|dog", "a dog barks", "dog", 2},
		{"class pattern no prefilter", `\d+`, "abc 123", "123", 4},
		{"anchored later line", "^b", "a\nb", "-", 0},
		{"no match", "xyz", "aaaa", "-", 0},
		{"empty matches at zero", "", "abc", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MustCompile(tt.pattern, 0).Search(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if tt.want == "-" {
				if m != nil {
					t.Fatalf("Search matched %q, want none", m.Text())
				}
				return
			}
			if m == nil {
				t.Fatalf("no match, want %q at %d", tt.want, tt.start)
			}
			if m.Text() != tt.want || m.Start() != tt.start {
				t.Errorf("Search = %q at %d, want %q at %d", m.Text(), m.Start(), tt.want, tt.start)
			}
		})
	}
}

func TestSearchAt(t *testing.T) {
	p := MustCompile("ab", 0)

	m, err := p.SearchAt("ab ab", 1)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Start() != 3 {
		t.Fatalf("SearchAt(1) = %v, want match at 3", m)
	}

	m, err = p.SearchAt("ab ab", 4)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("SearchAt(4) matched %q, want none", m.Text())
	}
}

// TestFindAllLimit tests the n parameter.
func TestFindAllLimit(t *testing.T) {
	p := MustCompile(`\d+`, 0)

	got, err := p.FindAll("1 22 333 4444", 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "22"}, got); diff != "" {
		t.Errorf("FindAll(n=2) mismatch (-want +got):\n%s", diff)
	}

	got, err = p.FindAll("1 22 333", 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "22", "333"}, got); diff != "" {
		t.Errorf("FindAll(n=0) mismatch (-want +got):\n%s", diff)
	}
}

// TestFindAllSubmatch tests tuple shapes with and without groups.
func TestFindAllSubmatch(t *testing.T) {
	t.Run("with groups", func(t *testing.T) {
		got, err := MustCompile(`(\w+)=(\d+)`, 0).FindAllSubmatch("a=1, bb=22", -1)
		if err != nil {
			t.Fatal(err)
		}
		want := [][]string{{"a", "1"}, {"bb", "22"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("without groups", func(t *testing.T) {
		got, err := MustCompile(`\d+`, 0).FindAllSubmatch("1 22", -1)
		if err != nil {
			t.Fatal(err)
		}
		want := [][]string{{"1"}, {"22"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestFindIterRestartable tests that each range loop over the same
// iterator value scans independently.
func TestFindIterRestartable(t *testing.T) {
	seq := MustCompile("a", 0).FindIter("aaa")

	for round := 0; round < 2; round++ {
		count := 0
		for m, err := range seq {
			if err != nil {
				t.Fatal(err)
			}
			if m.Text() != "a" {
				t.Fatalf("matched %q", m.Text())
			}
			count++
		}
		if count != 3 {
			t.Errorf("round %d: %d matches, want 3", round, count)
		}
	}
}

// TestStepLimitSurfaces tests that the step budget reaches the caller as
// a *vm.LimitError, distinct from a non-match.
func TestStepLimitSurfaces(t *testing.T) {
	config := DefaultConfig()
	config.MaxSteps = 1_000
	p, err := CompileWithConfig("(a+)+c", 0, config)
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Match("aaaaaaaaaaaaaaaaaaaaaaaaab")
	var lerr *vm.LimitError
	if !errors.As(err, &lerr) {
		t.Fatalf("Match error = %v, want *vm.LimitError", err)
	}

	_, err = p.FindAll("aaaaaaaaaaaaaaaaaaaaaaaaab", -1)
	if !errors.As(err, &lerr) {
		t.Fatalf("FindAll error = %v, want *vm.LimitError", err)
	}
}
