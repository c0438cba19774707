/*
Package ngram provides NGram, an immutable ordered tuple of tokens used as
the key of an n-gram frequency table.

Comparisons between n-grams of different lengths only look at the positions
both share. Two n-grams that agree on those positions are Equal, which lets a
full n-gram be matched against a shorter history. For ordering purposes the
shorter of two such n-grams sorts first, so every n-gram extending a given
history occupies one contiguous run of a sorted table.
*/
package ngram

import (
	"cmp"
	"fmt"
	"strings"
)

// NGram is an ordered sequence of tokens. The zero value is an empty n-gram
// of order 0.
type NGram struct {
	grams []string
}

// New creates an n-gram from the given tokens. The slice is copied, so the
// caller may reuse it.
func New(tokens ...string) NGram {
	grams := make([]string, len(tokens))
	copy(grams, tokens)
	return NGram{grams: grams}
}

// Repeat creates an n-gram of the given order holding token at every position.
func Repeat(token string, order int) NGram {
	grams := make([]string, order)
	for i := range grams {
		grams[i] = token
	}
	return NGram{grams: grams}
}

// Order returns the number of tokens in the n-gram.
func (n NGram) Order() int {
	return len(n.grams)
}

// Gram returns the token at pos. It panics if pos is not in [0, Order()).
func (n NGram) Gram(pos int) string {
	if pos < 0 || pos >= len(n.grams) {
		panic(fmt.Sprintf("ngram: position %d out of range for order %d", pos, len(n.grams)))
	}
	return n.grams[pos]
}

// Last returns the newest token. It panics on an empty n-gram.
func (n NGram) Last() string {
	return n.Gram(len(n.grams) - 1)
}

// Tokens returns a copy of the tokens in order.
func (n NGram) Tokens() []string {
	out := make([]string, len(n.grams))
	copy(out, n.grams)
	return out
}

// Shift returns a new n-gram of the same order with the oldest token dropped
// and tok appended. The receiver is left untouched.
func (n NGram) Shift(tok string) NGram {
	if len(n.grams) == 0 {
		return n
	}
	grams := make([]string, len(n.grams))
	copy(grams, n.grams[1:])
	grams[len(grams)-1] = tok
	return NGram{grams: grams}
}

// History returns the n-gram without its newest token.
func (n NGram) History() NGram {
	if len(n.grams) == 0 {
		return n
	}
	return New(n.grams[:len(n.grams)-1]...)
}

// Compare returns -1, 0 or +1 depending on whether n sorts before, together
// with, or after o. Tokens are compared pairwise from the oldest; when every
// shared position matches, the shorter n-gram sorts first.
func (n NGram) Compare(o NGram) int {
	for i := 0; i < len(n.grams) && i < len(o.grams); i++ {
		if c := strings.Compare(n.grams[i], o.grams[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(n.grams), len(o.grams))
}

// Equal reports whether n and o agree on every position they share.
// N-grams of different orders can be Equal.
func (n NGram) Equal(o NGram) bool {
	for i := 0; i < len(n.grams) && i < len(o.grams); i++ {
		if n.grams[i] != o.grams[i] {
			return false
		}
	}
	return true
}

// Less reports whether n sorts strictly before o.
func (n NGram) Less(o NGram) bool {
	return n.Compare(o) < 0
}

// LessEqual reports whether n is Less than or Equal to o.
func (n NGram) LessEqual(o NGram) bool {
	return n.Less(o) || n.Equal(o)
}

// Greater reports whether n is neither Less than nor Equal to o. An n-gram is
// never Greater than one of its own prefixes.
func (n NGram) Greater(o NGram) bool {
	return !n.Less(o) && !n.Equal(o)
}

// GreaterEqual reports whether n is not Less than o.
func (n NGram) GreaterEqual(o NGram) bool {
	return !n.Less(o)
}

// HasPrefix reports whether p is no longer than n and matches its oldest
// positions.
func (n NGram) HasPrefix(p NGram) bool {
	return len(p.grams) <= len(n.grams) && n.Equal(p)
}

// String returns the tokens joined by single spaces.
func (n NGram) String() string {
	return strings.Join(n.grams, " ")
}
