package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestIsVideo(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"talk.mp4", true},
		{"TALK.MOV", true},
		{"clip.webm", true},
		{"notes.txt", false},
		{"mp4", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVideo(tt.name))
		})
	}
}

func TestListVideos(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "b.mp4"), base.Add(2*time.Hour))
	touch(t, filepath.Join(dir, "a.mkv"), base.Add(time.Hour))
	touch(t, filepath.Join(dir, "readme.md"), base)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp4"), 0o755))

	videos, err := ListVideos(dir)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "a.mkv", videos[0].Name)
	assert.Equal(t, "b.mp4", videos[1].Name)
	assert.Equal(t, filepath.Join(dir, "b.mp4"), videos[1].FullPath)

	_, err = ListVideos(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := filepath.Join(dir, "talks")
	require.NoError(t, os.Mkdir(sub, 0o755))
	touch(t, filepath.Join(sub, "one.mp4"), base)
	touch(t, filepath.Join(sub, "two.mp4"), base.Add(time.Minute))
	single := filepath.Join(dir, "single.avi")
	touch(t, single, base)

	got, err := Collect([]string{single, sub})
	require.NoError(t, err)
	assert.Equal(t, []string{single, filepath.Join(sub, "one.mp4"), filepath.Join(sub, "two.mp4")}, got)

	_, err = Collect([]string{filepath.Join(dir, "nope.mp4")})
	assert.Error(t, err)
}
