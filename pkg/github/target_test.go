package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepositoryURL(t *testing.T) {
	valid := []string{
		"https://github.com/mui-org/material-ui-pickers",
		"https://github.com/mui-org/material-ui-pickers/",
		"https://github.com/mui-org/material-ui-pickers.git",
		"http://www.github.com/mui-org/material-ui-pickers",
		"github.com/mui-org/material-ui-pickers",
		"mui-org/material-ui-pickers",
		"/mui-org//material-ui-pickers",
	}
	for _, raw := range valid {
		t.Run(raw, func(t *testing.T) {
			owner, name, err := ParseRepositoryURL(raw)
			require.NoError(t, err)
			assert.Equal(t, "mui-org", owner)
			assert.Equal(t, "material-ui-pickers", name)
		})
	}

	invalid := []string{
		"",
		"https://github.com/mui-org",
		"https://github.com/mui-org/material-ui-pickers/issues",
		"https://github.com/mui org/pickers",
		"owner/..",
	}
	for _, raw := range invalid {
		t.Run("invalid "+raw, func(t *testing.T) {
			_, _, err := ParseRepositoryURL(raw)
			assert.ErrorIs(t, err, ErrInvalidRepositoryURL)
		})
	}
}
