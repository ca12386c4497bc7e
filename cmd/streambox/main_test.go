package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/amaumene/streambox/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CACHE_BACKEND", "none")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "streambox version dev\n", out)
}

func TestCatalogListTable(t *testing.T) {
	out, err := execute(t, "catalog", "list", "--type", "series")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, out, "The Witcher")
	for _, line := range lines[1:] {
		assert.Equal(t, "series", strings.Fields(line)[1], line)
	}
}

func TestCatalogListJSONSearchWins(t *testing.T) {
	out, err := execute(t, "catalog", "list", "--json", "--type", "movie", "--search", "witcher")
	require.NoError(t, err)

	var items []*models.Content
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "The Witcher", items[0].Title)
	assert.Equal(t, models.ContentTypeSeries, items[0].Type())
}

func TestCatalogListRejectsUnknownType(t *testing.T) {
	_, err := execute(t, "catalog", "list", "--type", "documentary")
	assert.Error(t, err)
}
