package nlg

import (
	"regexp"
)

// Tokenizer is an interface that defines the contract for splitting input text
// into tokens. This allows the core generator logic to be independent of the
// specific tokenization strategy.
type Tokenizer interface {
	// Tokenize splits one training instance into tokens, oldest first.
	Tokenize(text string) []string
	// Separator returns the string that should be used to join tokens
	// when building a final generated string, using the previous and current
	// tokens.
	Separator(prev, current string) string
}

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// It splits text on whitespace and punctuation boundaries and drops the
// delimiters. Tokens are neither normalized nor case-folded.
type DefaultTokenizer struct {
	separator  string
	splitRegex *regexp.Regexp
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining tokens during generation.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithSplitRegex sets the regex string matching a single token. The regex
// must not match StartToken or EndToken, otherwise Feed rejects the text.
// Default: `[^\s\p{P}\p{S}]+`
func WithSplitRegex(splitRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.splitRegex = regexp.MustCompile(splitRegex)
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		// Runs of anything that is neither whitespace, punctuation nor a symbol.
		splitRegex: regexp.MustCompile(`[^\s\p{P}\p{S}]+`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Tokenize returns every match of the split regex in text.
func (t *DefaultTokenizer) Tokenize(text string) []string {
	return t.splitRegex.FindAllString(text, -1)
}

// Separator Returns the configured separator string.
func (t *DefaultTokenizer) Separator(_, _ string) string {
	return t.separator
}
