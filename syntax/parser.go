package syntax

import (
	"fmt"
	"strconv"
	"unicode"
)

// maxRepeat caps explicit repetition counts. Matches the limit the
// compiler can unroll without producing unreasonable programs.
const maxRepeat = 1000

// source is a rune-indexed cursor over the pattern text. All error
// offsets produced by the parser are rune positions into the original
// pattern.
type source struct {
	pattern string
	chars   []rune
	pos     int
}

func (s *source) init(pattern string) {
	s.pattern = pattern
	s.chars = []rune(pattern)
	s.pos = 0
}

// peek returns the next rune without consuming it.
func (s *source) peek() (rune, bool) {
	if s.pos >= len(s.chars) {
		return 0, false
	}
	return s.chars[s.pos], true
}

// read consumes and returns the next rune.
func (s *source) read() (rune, bool) {
	c, ok := s.peek()
	if ok {
		s.pos++
	}
	return c, ok
}

// match consumes the next rune if it equals c.
func (s *source) match(c rune) bool {
	if next, ok := s.peek(); ok && next == c {
		s.pos++
		return true
	}
	return false
}

// tell returns the current rune position.
func (s *source) tell() int { return s.pos }

// seek rewinds to a position previously returned by tell.
func (s *source) seek(pos int) { s.pos = pos }

// getUntil consumes runes up to (and including) the terminator, returning
// the consumed text. Returns an error naming what was expected if the
// terminator is missing or the text is empty.
func (s *source) getUntil(term rune, what string) (string, error) {
	start := s.pos
	for {
		c, ok := s.read()
		if !ok {
			return "", s.errorAt(fmt.Sprintf("missing %c, unterminated %s", term, what), start)
		}
		if c == term {
			break
		}
	}
	name := string(s.chars[start : s.pos-1])
	if name == "" {
		return "", s.errorAt("missing "+what, start)
	}
	return name, nil
}

// nextInt consumes a run of decimal digits. ok reports whether at least
// one digit was present.
func (s *source) nextInt() (value int, ok bool) {
	for {
		c, present := s.peek()
		if !present || c < '0' || c > '9' {
			break
		}
		s.pos++
		value = value*10 + int(c-'0')
		ok = true
		if value > maxRepeat {
			value = maxRepeat + 1 // saturate; caller reports the error
		}
	}
	return value, ok
}

// nextHex consumes up to n hex digits.
func (s *source) nextHex(n int) string {
	start := s.pos
	for s.pos-start < n {
		c, ok := s.peek()
		if !ok || !isHexDigit(c) {
			break
		}
		s.pos++
	}
	return string(s.chars[start:s.pos])
}

// errorAt builds a ParseError at an explicit position.
func (s *source) errorAt(msg string, pos int) *ParseError {
	return &ParseError{Msg: msg, Pattern: s.pattern, Pos: pos}
}

// errorHere builds a ParseError at the current position.
func (s *source) errorHere(msg string) *ParseError {
	return s.errorAt(msg, s.pos)
}

// parser holds the state shared across the recursive descent: the flag
// set, the group table, and bookkeeping for forward references from
// conditional groups.
type parser struct {
	src    source
	flags  Flags
	groups int
	closed []bool // closed[i-1] reports group i fully parsed
	names  map[string]int

	// condRefs records numeric conditional references to groups that were
	// not declared yet at the point of use, mapped to their position for
	// error reporting. Validated after the whole pattern is parsed.
	condRefs map[int]int

	// sawItem is set once any pattern element has been consumed; used to
	// reject global inline flags that do not lead the pattern.
	sawItem bool
}

// Parse parses a pattern with the given initial flags into a Tree.
// The returned error, if any, is a *ParseError carrying the rune offset
// of the problem.
func Parse(pattern string, flags Flags) (*Tree, error) {
	p := &parser{
		flags:    flags,
		names:    make(map[string]int),
		condRefs: make(map[int]int),
	}
	p.src.init(pattern)

	root, err := p.parseAlternate(flags&Verbose != 0, 0)
	if err != nil {
		return nil, err
	}
	if _, ok := p.src.peek(); ok {
		return nil, p.src.errorHere("unbalanced parenthesis")
	}
	for group, pos := range p.condRefs {
		if group > p.groups {
			return nil, p.src.errorAt(fmt.Sprintf("invalid group reference %d", group), pos)
		}
	}
	return &Tree{
		Root:    root,
		Flags:   p.flags,
		Groups:  p.groups,
		Names:   p.names,
		Pattern: pattern,
	}, nil
}

// openGroup allocates the next group number, registering the name if any.
func (p *parser) openGroup(name string, namePos int) (int, error) {
	p.groups++
	gid := p.groups
	p.closed = append(p.closed, false)
	if name != "" {
		if prev, ok := p.names[name]; ok {
			return 0, p.src.errorAt(
				fmt.Sprintf("redefinition of group name %q as group %d; was group %d", name, gid, prev), namePos)
		}
		p.names[name] = gid
	}
	return gid, nil
}

func (p *parser) closeGroup(gid int) {
	p.closed[gid-1] = true
}

// groupClosed reports whether a group exists and has been fully parsed,
// which is required before it can be referenced.
func (p *parser) groupClosed(gid int) bool {
	return gid >= 1 && gid <= p.groups && p.closed[gid-1]
}

// parseAlternate parses branch ('|' branch)* until ')' or end of pattern.
func (p *parser) parseAlternate(verbose bool, nested int) (Node, error) {
	var branches []Node
	for {
		branch, err := p.parseBranch(verbose, nested)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
		if !p.src.match('|') {
			break
		}
		if nested == 0 {
			// A leading global flag group may have changed Verbose.
			verbose = p.flags&Verbose != 0
		}
	}
	if len(branches) == 1 {
		return branches[0], nil
	}
	return &Alternate{Nodes: branches}, nil
}

// parseBranch parses a concatenation until '|', ')' or end of pattern.
func (p *parser) parseBranch(verbose bool, nested int) (Node, error) {
	var items []Node

	// last returns the most recent quantifiable item, or nil.
	last := func() Node {
		if len(items) == 0 {
			return nil
		}
		return items[len(items)-1]
	}

	for {
		c, ok := p.src.peek()
		if !ok || c == '|' || c == ')' {
			break
		}
		p.src.read()

		if verbose {
			if unicode.IsSpace(c) {
				continue
			}
			if c == '#' {
				for {
					ch, ok := p.src.read()
					if !ok || ch == '\n' {
						break
					}
				}
				continue
			}
		}

		switch c {
		case '\\':
			item, err := p.parseEscape()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			p.sawItem = true

		case '[':
			item, err := p.parseClass()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			p.sawItem = true

		case '*', '+', '?', '{':
			here := p.src.tell() - 1

			min, max, isRepeat, err := p.parseQuantifier(c, here)
			if err != nil {
				return nil, err
			}
			if !isRepeat {
				// A '{' that does not form a valid range counts as a
				// literal brace.
				items = append(items, &Literal{R: c})
				p.sawItem = true
				continue
			}

			item := last()
			if item == nil {
				return nil, p.src.errorAt("nothing to repeat", here)
			}
			if _, isAssert := item.(*Assert); isAssert {
				return nil, p.src.errorAt("nothing to repeat", here)
			}
			if _, isRep := item.(*Repeat); isRep {
				return nil, p.src.errorAt("multiple repeat", here)
			}
			greedy := !p.src.match('?')
			items[len(items)-1] = &Repeat{Node: item, Min: min, Max: max, Greedy: greedy}

		case '.':
			items = append(items, &AnyChar{})
			p.sawItem = true

		case '(':
			item, err := p.parseGroup(verbose, nested)
			if err != nil {
				return nil, err
			}
			if item == nil {
				// A leading global flag group produces no node and may
				// have changed Verbose; it does not count as an item, so
				// further flag groups may still follow.
				if nested == 0 {
					verbose = p.flags&Verbose != 0
				}
				continue
			}
			items = append(items, item)
			p.sawItem = true

		case '^':
			items = append(items, &Assert{AssertKind: AssertBeginLine})
			p.sawItem = true
		case '$':
			items = append(items, &Assert{AssertKind: AssertEndLine})
			p.sawItem = true

		default:
			items = append(items, &Literal{R: c})
			p.sawItem = true
		}
	}

	if len(items) == 1 {
		return items[0], nil
	}
	return &Concat{Nodes: items}, nil
}

// parseQuantifier interprets c (one of * + ? {) as a repetition operator.
// isRepeat is false when a '{' turned out not to open a valid {m,n} range,
// in which case the brace is taken literally and nothing was consumed.
func (p *parser) parseQuantifier(c rune, here int) (min, max int, isRepeat bool, err error) {
	switch c {
	case '*':
		return 0, Unbounded, true, nil
	case '+':
		return 1, Unbounded, true, nil
	case '?':
		return 0, 1, true, nil
	}

	// '{': try to parse {m}, {m,}, {,n} or {m,n}; rewind on failure.
	rewind := p.src.tell()
	lo, hasLo := p.src.nextInt()
	hi, hasHi := lo, hasLo
	if p.src.match(',') {
		hi, hasHi = p.src.nextInt()
	}
	if !p.src.match('}') || (!hasLo && !hasHi) {
		// "{}" and friends are literal braces, as in the re module.
		p.src.seek(rewind)
		return 0, 0, false, nil
	}

	min = 0
	max = Unbounded
	if hasLo {
		min = lo
		if min > maxRepeat {
			return 0, 0, false, p.src.errorAt("the repetition number is too large", here)
		}
	}
	if hasHi {
		max = hi
		if max > maxRepeat {
			return 0, 0, false, p.src.errorAt("the repetition number is too large", here)
		}
		if max < min {
			return 0, 0, false, p.src.errorAt("min repeat greater than max repeat", here)
		}
	}
	return min, max, true, nil
}

// parseGroup parses everything after an opening '(' and returns the
// resulting node. Returns nil for constructs that produce no node, such
// as comments and global flag groups.
func (p *parser) parseGroup(verbose bool, nested int) (Node, error) {
	start := p.src.tell() - 1

	name := ""
	capture := true
	var addFlags, delFlags Flags

	if p.src.match('?') {
		char, ok := p.src.read()
		if !ok {
			return nil, p.src.errorHere("unexpected end of pattern")
		}

		switch char {
		case 'P':
			if p.src.match('<') {
				var err error
				namePos := p.src.tell()
				name, err = p.src.getUntil('>', "group name")
				if err != nil {
					return nil, err
				}
				if err := checkGroupName(name, &p.src, namePos); err != nil {
					return nil, err
				}
			} else if p.src.match('=') {
				namePos := p.src.tell()
				name, err := p.src.getUntil(')', "group name")
				if err != nil {
					return nil, err
				}
				gid, ok := p.names[name]
				if !ok {
					return nil, p.src.errorAt(fmt.Sprintf("unknown group name %q", name), namePos)
				}
				if !p.groupClosed(gid) {
					return nil, p.src.errorAt("cannot refer to an open group", namePos)
				}
				return &Backref{Index: gid}, nil
			} else {
				return nil, p.src.errorHere("unknown extension ?P")
			}

		case ':':
			capture = false

		case '#':
			for {
				ch, ok := p.src.read()
				if !ok {
					return nil, p.src.errorAt("missing ), unterminated comment", start)
				}
				if ch == ')' {
					return nil, nil
				}
			}

		case '=', '!', '<':
			return p.parseLook(char, verbose, nested, start)

		case '(':
			return p.parseCond(verbose, nested, start)

		default:
			if lookupFlag(char) == 0 && char != '-' {
				return nil, p.src.errorAt(fmt.Sprintf("unknown extension ?%c", char), start+2)
			}
			var global bool
			var err error
			addFlags, delFlags, global, err = p.parseFlags(char)
			if err != nil {
				return nil, err
			}
			if global {
				if p.sawItem || nested > 0 {
					return nil, p.src.errorAt("global flags not at the start of the expression", start)
				}
				p.flags |= addFlags
				return nil, nil
			}
			capture = false
		}
	}

	gid := 0
	if capture {
		var err error
		gid, err = p.openGroup(name, start)
		if err != nil {
			return nil, err
		}
	}

	subVerbose := (verbose || addFlags&Verbose != 0) && delFlags&Verbose == 0
	sub, err := p.parseAlternate(subVerbose, nested+1)
	if err != nil {
		return nil, err
	}
	if !p.src.match(')') {
		return nil, p.src.errorAt("missing ), unterminated subpattern", start)
	}
	if capture {
		p.closeGroup(gid)
	}

	return &Group{
		Node:      sub,
		Capturing: capture,
		Index:     gid,
		Name:      name,
		AddFlags:  addFlags,
		DelFlags:  delFlags,
	}, nil
}

// parseLook parses (?=...), (?!...), (?<=...) and (?<!...). char is the
// rune following "(?".
func (p *parser) parseLook(char rune, verbose bool, nested, start int) (Node, error) {
	behind := false
	if char == '<' {
		c, ok := p.src.read()
		if !ok {
			return nil, p.src.errorHere("unexpected end of pattern")
		}
		if c != '=' && c != '!' {
			return nil, p.src.errorAt(fmt.Sprintf("unknown extension ?<%c", c), start+2)
		}
		behind = true
		char = c
	}

	sub, err := p.parseAlternate(verbose, nested+1)
	if err != nil {
		return nil, err
	}
	if !p.src.match(')') {
		return nil, p.src.errorAt("missing ), unterminated subpattern", start)
	}

	look := &Look{Node: sub, Behind: behind, Negated: char == '!'}
	if behind {
		min, max := nodeWidth(sub)
		if max == Unbounded || min != max {
			return nil, p.src.errorAt("look-behind requires fixed-width pattern", start)
		}
		look.Width = min
	}
	return look, nil
}

// parseCond parses the conditional group (?(id)yes|no). The leading "(?("
// has already been consumed.
func (p *parser) parseCond(verbose bool, nested, start int) (Node, error) {
	refPos := p.src.tell()
	ref, err := p.src.getUntil(')', "group name")
	if err != nil {
		return nil, err
	}

	var gid int
	if n, convErr := strconv.Atoi(ref); convErr == nil {
		if n <= 0 {
			return nil, p.src.errorAt("bad group number", refPos)
		}
		gid = n
		if gid > p.groups {
			// Forward reference; validated once the whole pattern is
			// parsed.
			if _, ok := p.condRefs[gid]; !ok {
				p.condRefs[gid] = refPos
			}
		}
	} else {
		if err := checkGroupName(ref, &p.src, refPos); err != nil {
			return nil, err
		}
		var ok bool
		gid, ok = p.names[ref]
		if !ok {
			return nil, p.src.errorAt(fmt.Sprintf("unknown group name %q", ref), refPos)
		}
	}

	yes, err := p.parseBranch(verbose, nested+1)
	if err != nil {
		return nil, err
	}
	var no Node
	if p.src.match('|') {
		no, err = p.parseBranch(verbose, nested+1)
		if err != nil {
			return nil, err
		}
		if next, ok := p.src.peek(); ok && next == '|' {
			return nil, p.src.errorHere("conditional backref with more than two branches")
		}
	}
	if !p.src.match(')') {
		return nil, p.src.errorAt("missing ), unterminated subpattern", start)
	}
	return &Cond{Group: gid, Yes: yes, No: no}, nil
}

// parseFlags parses the tail of an inline flag group. char is the first
// flag letter (or '-'). global reports the (?flags) form, which was
// terminated by ')' and applies to the whole pattern; otherwise the group
// continues after ':' with scoped flags.
func (p *parser) parseFlags(char rune) (addFlags, delFlags Flags, global bool, err error) {
	for char != '-' && char != ':' && char != ')' {
		flag := lookupFlag(char)
		if flag == 0 {
			return 0, 0, false, p.src.errorHere("unknown flag")
		}
		addFlags |= flag
		var ok bool
		char, ok = p.src.read()
		if !ok {
			return 0, 0, false, p.src.errorHere("missing -, : or )")
		}
	}

	if char == ')' {
		return addFlags, 0, true, nil
	}

	if char == '-' {
		char, _ = p.src.read()
		for char != ':' {
			flag := lookupFlag(char)
			if flag == 0 {
				return 0, 0, false, p.src.errorHere("unknown flag")
			}
			if flag == ASCII {
				return 0, 0, false, p.src.errorHere("bad inline flags: cannot turn off the 'a' flag")
			}
			delFlags |= flag
			var ok bool
			char, ok = p.src.read()
			if !ok {
				return 0, 0, false, p.src.errorHere("missing :")
			}
		}
	}

	if addFlags&delFlags != 0 {
		return 0, 0, false, p.src.errorHere("bad inline flags: flag turned on and off")
	}
	return addFlags, delFlags, false, nil
}

// parseEscape parses an escape sequence outside a character class.
func (p *parser) parseEscape() (Node, error) {
	start := p.src.tell() - 1

	c, ok := p.src.read()
	if !ok {
		return nil, p.src.errorAt("bad escape (end of pattern)", start)
	}

	switch c {
	case 'x':
		e := p.src.nextHex(2)
		if len(e) != 2 {
			return nil, p.src.errorAt(fmt.Sprintf(`incomplete escape \x%s`, e), start)
		}
		v, _ := strconv.ParseInt(e, 16, 32)
		return &Literal{R: rune(v)}, nil

	case '0':
		// octal escape, up to two more digits
		v := 0
		for i := 0; i < 2; i++ {
			ch, ok := p.src.peek()
			if !ok || ch < '0' || ch > '7' {
				break
			}
			p.src.read()
			v = v*8 + int(ch-'0')
		}
		return &Literal{R: rune(v)}, nil

	case '1', '2', '3', '4', '5', '6', '7', '8', '9':
		group := int(c - '0')
		if ch, ok := p.src.peek(); ok && ch >= '0' && ch <= '9' {
			p.src.read()
			group = group*10 + int(ch-'0')
		}
		if group > p.groups {
			return nil, p.src.errorAt(fmt.Sprintf("invalid group reference %d", group), start+1)
		}
		if !p.groupClosed(group) {
			return nil, p.src.errorAt("cannot refer to an open group", start)
		}
		return &Backref{Index: group}, nil

	case 'A':
		return &Assert{AssertKind: AssertBeginText}, nil
	case 'Z':
		return &Assert{AssertKind: AssertEndText}, nil
	case 'b':
		return &Assert{AssertKind: AssertWordBoundary}, nil
	case 'B':
		return &Assert{AssertKind: AssertNonWordBoundary}, nil

	case 'd':
		return &Class{Set: CharSet{Cats: []Category{CategoryDigit}}}, nil
	case 'D':
		return &Class{Set: CharSet{Cats: []Category{CategoryNotDigit}}}, nil
	case 's':
		return &Class{Set: CharSet{Cats: []Category{CategorySpace}}}, nil
	case 'S':
		return &Class{Set: CharSet{Cats: []Category{CategoryNotSpace}}}, nil
	case 'w':
		return &Class{Set: CharSet{Cats: []Category{CategoryWord}}}, nil
	case 'W':
		return &Class{Set: CharSet{Cats: []Category{CategoryNotWord}}}, nil
	}

	if r, ok := controlEscape(c); ok {
		return &Literal{R: r}, nil
	}
	if isASCIILetter(c) {
		return nil, p.src.errorAt(fmt.Sprintf(`bad escape \%c`, c), start)
	}
	return &Literal{R: c}, nil
}

// classItem is one parsed element of a character class body: either a
// single literal, a shorthand category, or nothing consumed.
type classItem struct {
	r     rune
	isCat bool
	cat   Category
}

// parseClassEscape parses an escape sequence inside a character class.
func (p *parser) parseClassEscape() (classItem, error) {
	start := p.src.tell() - 1

	c, ok := p.src.read()
	if !ok {
		return classItem{}, p.src.errorAt("bad escape (end of pattern)", start)
	}

	switch c {
	case 'x':
		e := p.src.nextHex(2)
		if len(e) != 2 {
			return classItem{}, p.src.errorAt(fmt.Sprintf(`incomplete escape \x%s`, e), start)
		}
		v, _ := strconv.ParseInt(e, 16, 32)
		return classItem{r: rune(v)}, nil

	case '0', '1', '2', '3', '4', '5', '6', '7':
		// octal escape, up to three digits total
		v := int(c - '0')
		for i := 0; i < 2; i++ {
			ch, ok := p.src.peek()
			if !ok || ch < '0' || ch > '7' {
				break
			}
			p.src.read()
			v = v*8 + int(ch-'0')
		}
		return classItem{r: rune(v)}, nil

	case 'd':
		return classItem{isCat: true, cat: CategoryDigit}, nil
	case 'D':
		return classItem{isCat: true, cat: CategoryNotDigit}, nil
	case 's':
		return classItem{isCat: true, cat: CategorySpace}, nil
	case 'S':
		return classItem{isCat: true, cat: CategoryNotSpace}, nil
	case 'w':
		return classItem{isCat: true, cat: CategoryWord}, nil
	case 'W':
		return classItem{isCat: true, cat: CategoryNotWord}, nil

	case 'b':
		// backspace inside a class, not a word boundary
		return classItem{r: '\b'}, nil
	}

	if r, ok := controlEscape(c); ok {
		return classItem{r: r}, nil
	}
	if isASCIILetter(c) {
		return classItem{}, p.src.errorAt(fmt.Sprintf(`bad escape \%c`, c), start)
	}
	return classItem{r: c}, nil
}

// parseClass parses a character class body. The opening '[' has already
// been consumed.
func (p *parser) parseClass() (Node, error) {
	here := p.src.tell() - 1

	set := CharSet{Negated: p.src.match('^')}
	first := true

	for {
		rangeStart := p.src.tell()

		c, ok := p.src.read()
		if !ok {
			return nil, p.src.errorAt("unterminated character set", here)
		}
		if c == ']' && !first {
			break
		}
		first = false

		var lo classItem
		if c == '\\' {
			var err error
			lo, err = p.parseClassEscape()
			if err != nil {
				return nil, err
			}
		} else {
			lo = classItem{r: c}
		}

		if !p.src.match('-') {
			set.add(lo)
			continue
		}

		// Potential range. A '-' immediately before ']' is a literal.
		ch, ok := p.src.read()
		if !ok {
			return nil, p.src.errorAt("unterminated character set", here)
		}
		if ch == ']' {
			set.add(lo)
			set.add(classItem{r: '-'})
			break
		}

		var hi classItem
		if ch == '\\' {
			var err error
			hi, err = p.parseClassEscape()
			if err != nil {
				return nil, err
			}
		} else {
			hi = classItem{r: ch}
		}

		if lo.isCat || hi.isCat || hi.r < lo.r {
			return nil, p.src.errorAt(
				fmt.Sprintf("bad character range %s", string(p.src.chars[rangeStart:p.src.tell()])), rangeStart)
		}
		set.Ranges = append(set.Ranges, RuneRange{Lo: lo.r, Hi: hi.r})
	}

	return &Class{Set: set}, nil
}

// add appends a parsed class item to the set.
func (s *CharSet) add(it classItem) {
	if it.isCat {
		s.Cats = append(s.Cats, it.cat)
		return
	}
	s.Ranges = append(s.Ranges, RuneRange{Lo: it.r, Hi: it.r})
}

// checkGroupName validates a group name: an identifier-shaped token that
// does not start with a digit.
func checkGroupName(name string, src *source, pos int) error {
	for i, c := range name {
		if c == '_' || unicode.IsLetter(c) {
			continue
		}
		if i > 0 && unicode.IsDigit(c) {
			continue
		}
		return src.errorAt(fmt.Sprintf("bad character in group name %q", name), pos)
	}
	return nil
}

// controlEscape maps single-letter control escapes to their character.
func controlEscape(c rune) (rune, bool) {
	switch c {
	case 'a':
		return '\a', true
	case 'f':
		return '\f', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case 'v':
		return '\v', true
	case '\\':
		return '\\', true
	}
	return 0, false
}

func isASCIILetter(c rune) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isHexDigit(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
