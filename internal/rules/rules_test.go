package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestSeedLoads(t *testing.T) {
	businesses, err := Seed()
	require.NoError(t, err)
	require.NotEmpty(t, businesses)

	for _, b := range businesses {
		assert.NoError(t, b.Validate())
		assert.NotEmpty(t, b.Regexps)
	}
}

func TestLoad(t *testing.T) {
	input := `
businesses:
  - id: cafe
    name: Cafe
    defaultCategory: dining
    patterns:
      - "CAFE"
      - ""
      - "CAFE"
      - "COFFEE"
`
	businesses, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, businesses, 1)
	assert.Equal(t, "cafe", businesses[0].ID)
	assert.Equal(t, "dining", businesses[0].DefaultCategoryID)
	assert.Equal(t, []string{"CAFE", "COFFEE"}, businesses[0].Regexps,
		"empty and duplicate patterns are dropped")
}

func TestLoadRejectsBadPattern(t *testing.T) {
	input := `
businesses:
  - id: broken
    name: Broken
    patterns:
      - "[unclosed"
`
	_, err := Load(strings.NewReader(input))
	require.Error(t, err)
	assert.Equal(t, core.CodeInvalidPattern, core.CodeOf(err))
}

func TestLoadRejectsDuplicateID(t *testing.T) {
	input := `
businesses:
  - id: a
    name: First
    patterns: ["X"]
  - id: a
    name: Second
    patterns: ["Y"]
`
	_, err := Load(strings.NewReader(input))
	require.Error(t, err)
	assert.Equal(t, core.CodeDuplicateName, core.CodeOf(err))
}

func TestLoadRejectsMissingID(t *testing.T) {
	input := `
businesses:
  - name: Nameless
    patterns: ["X"]
`
	_, err := Load(strings.NewReader(input))
	require.Error(t, err)
	assert.Equal(t, core.CodeMissingField, core.CodeOf(err))
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(strings.NewReader("businesses: [unterminated"))
	require.Error(t, err)
	assert.Equal(t, core.CodeValidationFailed, core.CodeOf(err))
}
