package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// VideoExtensions are the container formats picked up when scanning a directory
var VideoExtensions = []string{".mp4", ".mov", ".mkv", ".webm"}

// VideoFile is a video found on disk
type VideoFile struct {
	FullPath string
	Name     string
	ModTime  time.Time
}

// IsVideo reports whether name has one of VideoExtensions, case-insensitively
func IsVideo(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range VideoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// ListVideos returns the videos directly inside dir, oldest first
func ListVideos(dir string) ([]VideoFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var videos []VideoFile
	for _, entry := range entries {
		if entry.IsDir() || !IsVideo(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		videos = append(videos, VideoFile{
			FullPath: filepath.Join(dir, entry.Name()),
			Name:     entry.Name(),
			ModTime:  info.ModTime(),
		})
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].ModTime.Before(videos[j].ModTime)
	})
	return videos, nil
}

// Collect resolves command line arguments to video paths. Files are kept as
// given, in order; directories expand to their videos.
func Collect(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		videos, err := ListVideos(p)
		if err != nil {
			return nil, err
		}
		for _, v := range videos {
			out = append(out, v.FullPath)
		}
	}
	return out, nil
}
