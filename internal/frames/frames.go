package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Naming contract for captured frames: frame000.png, frame001.png, ...
const (
	Prefix = "frame"
	Ext    = ".png"
	Pad    = 3
)

// Name returns the file name for the frame at index i
func Name(i int) string {
	return fmt.Sprintf("%s%0*d%s", Prefix, Pad, i, Ext)
}

// Path returns the full path for the frame at index i inside dir
func Path(dir string, i int) string {
	return filepath.Join(dir, Name(i))
}

// Pattern returns the printf-style input pattern ffmpeg expects for the frames in dir
func Pattern(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("%s%%0%dd%s", Prefix, Pad, Ext))
}

// Match reports whether name follows the frame naming pattern.
// Any run of digits is accepted so files from longer runs are still cleaned up.
func Match(name string) bool {
	_, ok := Index(name)
	return ok
}

// Index parses the frame number out of name
func Index(name string) (int, bool) {
	if !strings.HasPrefix(name, Prefix) || !strings.HasSuffix(name, Ext) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, Prefix), Ext)
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return i, true
}

// List returns the paths of all frame files in dir ordered by frame number
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Match(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.SliceStable(paths, func(i, j int) bool {
		a, _ := Index(filepath.Base(paths[i]))
		b, _ := Index(filepath.Base(paths[j]))
		if a != b {
			return a < b
		}
		return paths[i] < paths[j]
	})
	return paths, nil
}

// Sequence returns Path(dir, 0), Path(dir, 1), ... up to the first missing frame.
// This is the run ffmpeg reads through Pattern.
func Sequence(dir string) ([]string, error) {
	var paths []string
	for i := 0; ; i++ {
		p := Path(dir, i)
		info, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			return paths, nil
		}
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return paths, nil
		}
		paths = append(paths, p)
	}
}

// Prepare makes sure dir exists and holds no frames from a previous run.
// It returns the number of stale frames removed.
func Prepare(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}
	return Clear(dir)
}

// Clear removes every frame file in dir, leaving other files alone
func Clear(dir string) (int, error) {
	paths, err := List(dir)
	if err != nil {
		return 0, err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return 0, fmt.Errorf("remove stale frame: %w", err)
		}
	}
	return len(paths), nil
}
