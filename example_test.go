package retrace_test

import (
	"fmt"

	"github.com/coregx/retrace"
)

func ExampleCompile() {
	p, err := retrace.Compile(`(\w+)@(\w+)\.com`, 0)
	if err != nil {
		panic(err)
	}

	m, _ := p.Search("mail ada@lovelace.com today")
	fmt.Println(m.Text())
	fmt.Println(m.Group(1))
	// Output:
	// ada@lovelace.com
	// ada
}

func ExamplePattern_FullMatch() {
	p := retrace.MustCompile(`a|ab`, 0)

	m, _ := p.FullMatch("ab")
	fmt.Println(m.Text())
	// Output:
	// ab
}

func ExamplePattern_FindAll() {
	p := retrace.MustCompile(`<.*?>`, 0)

	tags, _ := p.FindAll("<b>Important</b>", -1)
	fmt.Println(tags)
	// Output:
	// [<b> </b>]
}

func ExampleMatch_GroupByName() {
	p := retrace.MustCompile(`(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})`, 0)

	m, _ := p.Search("released on 2026-08-26")
	fmt.Println(m.GroupByName("year"), m.GroupByName("month"))
	// Output:
	// 2026 08
}

func ExamplePattern_FindIter() {
	p := retrace.MustCompile(`\d+`, 0)

	for m, err := range p.FindIter("1 22 333") {
		if err != nil {
			panic(err)
		}
		fmt.Println(m.Text(), m.Start())
	}
	// Output:
	// 1 0
	// 22 2
	// 333 5
}

func ExampleCache() {
	cache := retrace.NewCache(128, retrace.DefaultConfig())

	for _, input := range []string{"item 1", "item 2"} {
		p, err := cache.Get(`item (\d+)`, 0)
		if err != nil {
			panic(err)
		}
		m, _ := p.Search(input)
		fmt.Println(m.Group(1))
	}

	hits, misses := cache.Stats()
	fmt.Println(hits, misses)
	// Output:
	// 1
	// 2
	// 1 1
}
