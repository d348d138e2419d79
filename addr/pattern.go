package addr

import "strings"

// Match reports whether literal is matched by pattern under OSC 1.0
// address-pattern semantics, applied to a single path segment. Pattern
// meta-characters: '?' (one char), '*' (zero or more, backtracking),
// '[...]'/'[!...]' (character class, optionally negated, with ASCII
// ranges via '-'), '{a,b,...}' (alternation). A pattern with an unclosed
// '[' or '{' never matches. Everything else matches itself literally.
func Match(pattern, literal string) bool {
	for {
		switch {
		case pattern == "" && literal == "":
			return true
		case pattern == "" && literal != "":
			return false
		case pattern[0] == '?':
			if literal == "" {
				return false
			}
			pattern, literal = pattern[1:], literal[1:]
		case pattern[0] == '*':
			return matchStar(pattern[1:], literal)
		case pattern[0] == '[':
			class, rest, ok := parseClass(pattern)
			if !ok {
				return false
			}
			if literal == "" || !class.matches(literal[0]) {
				return false
			}
			pattern, literal = rest, literal[1:]
		case pattern[0] == '{':
			return matchAlternatives(pattern, literal)
		default:
			if literal == "" || pattern[0] != literal[0] {
				return false
			}
			pattern, literal = pattern[1:], literal[1:]
		}
	}
}

// matchStar implements '*': try consuming zero, then one, then two, ...
// characters of literal before matching the rest of the pattern against
// what remains. The <= covers the all-consumed (empty suffix) case too.
func matchStar(restPattern, literal string) bool {
	for i := 0; i <= len(literal); i++ {
		if Match(restPattern, literal[i:]) {
			return true
		}
	}
	return false
}

// matchAlternatives implements '{a,b,...}': the first comma-separated
// alternative whose literal prefix matches, and whose remainder matches
// the rest of the pattern, wins. An empty alternative matches the empty
// substring.
func matchAlternatives(pattern, literal string) bool {
	end := strings.IndexByte(pattern, '}')
	if end == -1 {
		return false
	}
	alts := strings.Split(pattern[1:end], ",")
	rest := pattern[end+1:]

	for _, alt := range alts {
		if strings.HasPrefix(literal, alt) && Match(rest, literal[len(alt):]) {
			return true
		}
	}
	return false
}

// charClass is a parsed "[...]" pattern token: either a literal set of
// acceptable bytes, or its complement.
type charClass struct {
	set     [256]bool
	negated bool
}

func (c charClass) matches(b byte) bool {
	return c.set[b] != c.negated
}

// parseClass parses a leading "[...]" off pattern, honoring "[!...]"
// negation and "a-z" ranges ("-" at the start of the class, or with no
// usable predecessor, is a literal '-'). It returns the remainder of the
// pattern after the closing ']'.
func parseClass(pattern string) (charClass, string, bool) {
	end := strings.IndexByte(pattern, ']')
	if end == -1 {
		return charClass{}, "", false
	}

	body := pattern[1:end]
	rest := pattern[end+1:]

	var c charClass
	if strings.HasPrefix(body, "!") {
		c.negated = true
		body = body[1:]
	}

	for i := 0; i < len(body); {
		if i+2 < len(body) && body[i+1] == '-' {
			lo, hi := body[i], body[i+2]
			if lo <= hi {
				for b := int(lo); b <= int(hi); b++ {
					c.set[b] = true
				}
			} else {
				// Reversed range matches only the end character.
				c.set[hi] = true
			}
			i += 3
			continue
		}
		c.set[body[i]] = true
		i++
	}

	return c, rest, true
}
