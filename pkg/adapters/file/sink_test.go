package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/stagehand/pkg/adapters/file"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_Contract(t *testing.T) {
	ports.RunResultSinkContract(t, file.New(t.TempDir()))
}

func TestFileSink_ShippedOnMissingFile(t *testing.T) {
	sink := file.New(filepath.Join(t.TempDir(), "nested", "dir"))

	shipped, err := sink.Shipped(context.Background())
	require.NoError(t, err)
	assert.Empty(t, shipped)
}

func TestFileSink_LogFailure(t *testing.T) {
	dir := t.TempDir()
	sink := file.New(dir)

	err := sink.Log(context.Background(), domain.Failure{
		Tier:   domain.TierExperiment,
		Entity: "experiment",
		Err:    errors.New("pool exhausted"),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "failures.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"error":"pool exhausted"`)
	assert.Contains(t, lines[0], `"tier":"experiment"`)
}
