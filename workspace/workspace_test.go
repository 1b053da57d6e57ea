package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirPath(t *testing.T) {
	dir := t.TempDir()

	path, err := Dir(dir).Path(context.Background(), "any-branch")
	require.NoError(t, err)
	assert.Equal(t, dir, path)
}

func TestDirMissing(t *testing.T) {
	_, err := Dir(filepath.Join(t.TempDir(), "absent")).Path(context.Background(), "main")
	assert.Error(t, err)
}

func TestDirNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Dir(file).Path(context.Background(), "main")
	assert.Error(t, err)
}
