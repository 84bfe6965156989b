// Package naming issues fixed-width step identifiers whose lexicographic
// order equals generation order, so "10" never sorts before "2".
package naming

import (
	"errors"
	"fmt"
	"math"
)

// Defaults give 6^6 = 46656 identifiers: aaaaaa, aaaaab, ... ffffff.
const (
	DefaultAlphabet = "abcdef"
	DefaultWidth    = 6
)

var ErrNamerExhausted = errors.New("artifact namer exhausted")

// NamerExhaustedError reports a step index beyond the namer's capacity.
type NamerExhaustedError struct {
	Index    int
	Capacity int
}

func (e *NamerExhaustedError) Error() string {
	return fmt.Sprintf("%s: step %d exceeds capacity %d", ErrNamerExhausted, e.Index, e.Capacity)
}

func (e *NamerExhaustedError) Unwrap() error { return ErrNamerExhausted }

// Namer renders step indexes as base-len(alphabet) numbers of fixed width.
// It is not safe for concurrent use.
type Namer struct {
	alphabet string
	width    int
	capacity int
	next     int
}

// New creates a namer. The alphabet must hold at least two strictly
// ascending bytes so that identifier order matches string order.
func New(alphabet string, width int) (*Namer, error) {
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("namer alphabet %q: need at least two symbols", alphabet)
	}
	for i := 1; i < len(alphabet); i++ {
		if alphabet[i] <= alphabet[i-1] {
			return nil, fmt.Errorf("namer alphabet %q: symbols must be strictly ascending", alphabet)
		}
	}
	if width < 1 {
		return nil, fmt.Errorf("namer width must be positive, got %d", width)
	}

	capacity := math.Pow(float64(len(alphabet)), float64(width))
	if capacity > math.MaxInt32 {
		capacity = math.MaxInt32
	}
	return &Namer{alphabet: alphabet, width: width, capacity: int(capacity)}, nil
}

// Default returns a namer with DefaultAlphabet and DefaultWidth.
func Default() *Namer {
	n, _ := New(DefaultAlphabet, DefaultWidth)
	return n
}

// Capacity is the number of distinct identifiers the namer can issue.
func (n *Namer) Capacity() int { return n.capacity }

// ID returns the identifier for step index i.
func (n *Namer) ID(i int) (string, error) {
	if i < 0 || i >= n.capacity {
		return "", &NamerExhaustedError{Index: i, Capacity: n.capacity}
	}
	base := len(n.alphabet)
	buf := make([]byte, n.width)
	for pos := n.width - 1; pos >= 0; pos-- {
		buf[pos] = n.alphabet[i%base]
		i /= base
	}
	return string(buf), nil
}

// Next returns the identifier for the current step and advances the counter.
func (n *Namer) Next() (string, error) {
	id, err := n.ID(n.next)
	if err != nil {
		return "", err
	}
	n.next++
	return id, nil
}

// Issued is the number of identifiers handed out since the last Reset.
func (n *Namer) Issued() int { return n.next }

// Reset restarts the sequence at step 0.
func (n *Namer) Reset() { n.next = 0 }
