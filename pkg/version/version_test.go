package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.GoVersion, "go")
}

func TestInfo_JSON(t *testing.T) {
	info := Get()
	out, err := info.JSON()
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "version"))
}
