package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemManager_ExpandHome(t *testing.T) {
	fm := NewFileSystemManagerWithHome("/home/kiosk")

	assert.Equal(t, filepath.Join("/home/kiosk", "games", "a.exe"), fm.ExpandHome("~/games/a.exe"))
	assert.Equal(t, filepath.Join("/home/kiosk", "games"), fm.ExpandHome(`~\games`))
	assert.Equal(t, "/home/kiosk", fm.ExpandHome("~"))
	assert.Equal(t, "/opt/app", fm.ExpandHome("/opt/app"))
}

func TestFileSystemManager_Exists(t *testing.T) {
	home := t.TempDir()
	fm := NewFileSystemManagerWithHome(home)

	require.NoError(t, os.WriteFile(filepath.Join(home, "game.exe"), []byte("x"), 0755))

	assert.True(t, fm.Exists(filepath.Join(home, "game.exe")))
	assert.True(t, fm.Exists("~/game.exe"))
	assert.False(t, fm.Exists("~/missing.exe"))
	assert.False(t, fm.Exists(""))
	assert.False(t, fm.Exists("   "))
}
