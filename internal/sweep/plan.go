package sweep

import (
	"strings"
	"unicode"
)

// Combination is the unit of a run: one parameter name for a 1-D sweep, or
// two distinct names for a 2-D sweep. The first name drives the outer loop.
type Combination struct {
	Names []string
}

// IsPair reports whether the combination sweeps two parameters.
func (c Combination) IsPair() bool { return len(c.Names) == 2 }

// Key returns a filesystem-safe identifier for the combination, e.g.
// "leak_rate" or "leak_rate--spectral_radius".
func (c Combination) Key() string {
	parts := make([]string, len(c.Names))
	for i, name := range c.Names {
		parts[i] = sanitizeName(name)
	}
	return strings.Join(parts, "--")
}

func (c Combination) String() string {
	if c.IsPair() {
		return "(" + c.Names[0] + ", " + c.Names[1] + ")"
	}
	return strings.Join(c.Names, ", ")
}

// canonical identifies an unordered pair regardless of name order.
func (c Combination) canonical() string {
	a, b := c.Names[0], c.Names[1]
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Plan turns parameter names into the ordered combinations to iterate.
//
// For a single sweep the names are returned unchanged, one per combination.
// For a double sweep every unordered pair of distinct names appears exactly
// once, in first-seen order of the ordered product names x names.
func Plan(names []string, double bool) ([]Combination, error) {
	if len(names) == 0 {
		return nil, &InvalidParameterSetError{Names: names, Msg: "no parameters to sweep"}
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, &InvalidParameterSetError{Names: names, Msg: "parameter " + n + " given twice"}
		}
		seen[n] = true
	}

	if !double {
		combos := make([]Combination, len(names))
		for i, n := range names {
			combos[i] = Combination{Names: []string{n}}
		}
		return combos, nil
	}

	if len(names) < 2 {
		return nil, &InvalidParameterSetError{Names: names, Msg: "a double sweep needs at least two parameters"}
	}

	var ordered []Combination
	for _, a := range names {
		for _, b := range names {
			if a == b {
				continue
			}
			ordered = append(ordered, Combination{Names: []string{a, b}})
		}
	}

	// Build a fresh list rather than removing from the one being scanned.
	kept := make(map[string]bool, len(ordered)/2)
	combos := make([]Combination, 0, len(ordered)/2)
	for _, c := range ordered {
		key := c.canonical()
		if kept[key] {
			continue
		}
		kept[key] = true
		combos = append(combos, c)
	}
	return combos, nil
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
