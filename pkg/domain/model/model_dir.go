package model

import (
	"path/filepath"
	"sort"
	"strings"
)

const (
	// FoldDirPrefix is the name prefix of per-fold subdirectories.
	FoldDirPrefix = "fold_"
)

// ModelMarkerFiles are descriptor files, one of which must sit directly in a
// model directory.
var ModelMarkerFiles = []string{"plans.json", "dataset.json"}

// Entry is one node of a directory tree snapshot. Path is relative to the
// snapshot root and slash separated; the root itself is ".".
type Entry struct {
	Path  string
	IsDir bool
}

// ModelDirectory is a directory that carries the model signature.
type ModelDirectory struct {
	Path    string   // Absolute or caller-relative path
	Folds   []string // Names of fold_* subdirectories, sorted
	Markers []string // Marker files present, sorted
}

// FindModelDir returns the shallowest directory in snapshot that has at least
// one fold_* child directory and at least one marker file. Ties are broken by
// lexicographic path. The returned path is relative to the snapshot root.
func FindModelDir(snapshot []Entry) (*ModelDirectory, bool) {
	folds := map[string][]string{}
	markers := map[string][]string{}

	for _, e := range snapshot {
		if e.Path == "." || e.Path == "" {
			continue
		}
		parent, name := splitEntry(e.Path)
		if e.IsDir && strings.HasPrefix(name, FoldDirPrefix) {
			folds[parent] = append(folds[parent], name)
			continue
		}
		if !e.IsDir && isMarker(name) {
			markers[parent] = append(markers[parent], name)
		}
	}

	var candidates []string
	for dir := range folds {
		if _, ok := markers[dir]; ok {
			candidates = append(candidates, dir)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		di, dj := depth(candidates[i]), depth(candidates[j])
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})

	found := candidates[0]
	dir := &ModelDirectory{
		Path:    found,
		Folds:   append([]string(nil), folds[found]...),
		Markers: append([]string(nil), markers[found]...),
	}
	sort.Strings(dir.Folds)
	sort.Strings(dir.Markers)
	return dir, true
}

func splitEntry(p string) (parent, name string) {
	p = filepath.ToSlash(p)
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ".", p
	}
	return p[:idx], p[idx+1:]
}

func depth(p string) int {
	if p == "." {
		return 0
	}
	return strings.Count(p, "/") + 1
}

func isMarker(name string) bool {
	for _, m := range ModelMarkerFiles {
		if name == m {
			return true
		}
	}
	return false
}
