package static

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The page branches the same way scanner.Classify does: an empty
// string result or message still counts as present.
func TestAppJSChecksPresenceNotTruthiness(t *testing.T) {
	raw, err := fs.ReadFile(FS, "js/app.js")
	require.NoError(t, err)
	src := string(raw)

	assert.Contains(t, src, "data.popup === true")
	assert.Contains(t, src, "present(data.result)")
	assert.Contains(t, src, "present(data.message)")
	assert.NotContains(t, src, "if (data.result)")
	assert.NotContains(t, src, "if (data.message)")
}
