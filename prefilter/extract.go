package prefilter

import (
	"github.com/coregx/retrace/syntax"
)

// Extraction caps. Beyond these the prefix set stops growing; a
// truncated prefix is still sound, it just filters less precisely.
const (
	maxPrefixes  = 32
	maxPrefixLen = 16
)

// extract walks an AST node and returns the set of literal prefixes
// every match of the node must begin with. exact reports that the
// prefixes cover the node completely, so a following node may extend
// them. A nil set means nothing usable was found.
func extract(n syntax.Node) (prefixes []string, exact bool) {
	switch t := n.(type) {
	case *syntax.Literal:
		return []string{string(t.R)}, true

	case *syntax.Concat:
		return extractConcat(t.Nodes)

	case *syntax.Alternate:
		var out []string
		allExact := true
		for _, child := range t.Nodes {
			sub, subExact := extract(child)
			if len(sub) == 0 {
				return nil, false
			}
			out = append(out, sub...)
			if len(out) > maxPrefixes {
				return nil, false
			}
			allExact = allExact && subExact
		}
		return out, allExact

	case *syntax.Repeat:
		if t.Min == 0 {
			return nil, false
		}
		// One copy of the body is required; further copies are not
		// modeled, so the prefixes cannot be extended.
		sub, _ := extract(t.Node)
		return sub, false

	case *syntax.Group:
		if t.AddFlags&syntax.IgnoreCase != 0 {
			return nil, false
		}
		return extract(t.Node)

	case *syntax.Assert:
		// Zero-width; contributes nothing but lets a concat continue
		// into the following node.
		return []string{""}, true

	case *syntax.Look:
		// Zero-width like an assert; the engine verifies it at each
		// candidate anyway.
		return []string{""}, true

	default:
		return nil, false
	}
}

// extractConcat crosses the prefixes of consecutive children until one
// of them stops being exact or a cap is reached.
func extractConcat(nodes []syntax.Node) ([]string, bool) {
	prefixes := []string{""}
	for _, child := range nodes {
		sub, subExact := extract(child)
		if len(sub) == 0 {
			return prefixes, false
		}

		if len(prefixes)*len(sub) > maxPrefixes {
			return prefixes, false
		}
		var crossed []string
		done := false
		for _, p := range prefixes {
			for _, s := range sub {
				q := p + s
				if len(q) >= maxPrefixLen {
					q = q[:maxPrefixLen]
					done = true
				}
				crossed = append(crossed, q)
			}
		}
		prefixes = dedupe(crossed)

		if !subExact || done {
			return prefixes, false
		}
	}
	return prefixes, true
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
