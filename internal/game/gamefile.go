// Package game resolves game images and maps save slots to files.
package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrAmbiguousGame = errors.New("game name matches multiple files")
)

// Extensions the discovery scan recognizes as playable game images.
// The interpreter is the final judge of whether a file is actually
// loadable; this list only filters directory listings.
var imageExtensions = map[string]bool{
	".z1": true, ".z2": true, ".z3": true, ".z4": true,
	".z5": true, ".z6": true, ".z7": true, ".z8": true,
	".dat": true, ".zblorb": true,
}

// Gamefile is an immutable reference to a game image on disk.
type Gamefile struct {
	Name string
	Path string
}

func New(path string) Gamefile {
	return Gamefile{Name: filepath.Base(path), Path: path}
}

// Resolve turns user input into a Gamefile. Input containing a path
// separator is used as-is; a bare name is matched by prefix against the
// files in gamesDir. An ambiguous prefix is an error listing every
// candidate rather than a silent pick.
func Resolve(input, gamesDir string) (Gamefile, error) {
	if strings.ContainsAny(input, `/\`) {
		return New(input), nil
	}

	entries, err := os.ReadDir(gamesDir)
	if err != nil {
		return Gamefile{}, fmt.Errorf("%w: %q (games dir: %v)", ErrGameNotFound, input, err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), input) {
			matches = append(matches, entry.Name())
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return Gamefile{}, fmt.Errorf("%w: %q in %s", ErrGameNotFound, input, gamesDir)
	case 1:
		return New(filepath.Join(gamesDir, matches[0])), nil
	default:
		return Gamefile{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousGame, input, strings.Join(matches, ", "))
	}
}

// List returns every recognized game image in gamesDir, sorted by name.
func List(gamesDir string) ([]Gamefile, error) {
	entries, err := os.ReadDir(gamesDir)
	if err != nil {
		return nil, fmt.Errorf("read games dir: %w", err)
	}

	var games []Gamefile
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		games = append(games, New(filepath.Join(gamesDir, entry.Name())))
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Name < games[j].Name })
	return games, nil
}

// IsImage reports whether the filename carries a recognized game-image
// extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Exists reports whether the game image is present and readable.
func (g Gamefile) Exists() bool {
	f, err := os.Open(g.Path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// FullPath returns the canonical path handed to the interpreter,
// falling back to the raw path when resolution fails.
func (g Gamefile) FullPath() string {
	abs, err := filepath.Abs(g.Path)
	if err != nil {
		return g.Path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
