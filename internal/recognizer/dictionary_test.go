package recognizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCharset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFA\n B \n\n1\n"), 0o600))

	cs, err := LoadCharset(path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "1"}, cs.Tokens)

	withSpace, err := LoadCharset(path, true)
	require.NoError(t, err)
	assert.Equal(t, 4, withSpace.Size())
	assert.Equal(t, " ", withSpace.LookupToken(3))
}

func TestLoadCharsetErrors(t *testing.T) {
	_, err := LoadCharset("", false)
	assert.Error(t, err)

	_, err = LoadCharset(filepath.Join(t.TempDir(), "missing.txt"), false)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n  \n"), 0o600))
	_, err = LoadCharset(empty, false)
	assert.ErrorContains(t, err, "empty")
}

func TestLookupToken(t *testing.T) {
	cs := NewCharset([]string{"X", "Y"}, false)
	assert.Equal(t, "X", cs.LookupToken(0))
	assert.Equal(t, "", cs.LookupToken(-1))
	assert.Equal(t, "", cs.LookupToken(2))

	var nilSet *Charset
	assert.Equal(t, "", nilSet.LookupToken(0))
}
