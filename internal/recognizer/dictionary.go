package recognizer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Charset maps recognizer class indices to tokens. Index 0 of the model
// output is the CTC blank; token i of the charset is model class i+1.
type Charset struct {
	Tokens []string
}

// NewCharset builds a charset from tokens, optionally appending a space
// token the way PP-OCR models trained with spaces expect.
func NewCharset(tokens []string, useSpace bool) *Charset {
	out := append([]string(nil), tokens...)
	if useSpace {
		out = append(out, " ")
	}
	return &Charset{Tokens: out}
}

// LoadCharset loads a dictionary file where each non-empty line is a token.
// Surrounding whitespace and a leading UTF-8 BOM are removed.
func LoadCharset(path string, useSpace bool) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: Opening user-provided dictionary file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	tokens := make([]string, 0, 128)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if line = strings.TrimSpace(line); line != "" {
			tokens = append(tokens, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return NewCharset(tokens, useSpace), nil
}

// Size returns the number of tokens in the charset.
func (c *Charset) Size() int { return len(c.Tokens) }

// LookupToken returns the token for an index, or "" if out of range.
func (c *Charset) LookupToken(index int) string {
	if c == nil || index < 0 || index >= len(c.Tokens) {
		return ""
	}
	return c.Tokens[index]
}
