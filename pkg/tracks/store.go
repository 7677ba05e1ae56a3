// Package tracks stores uploaded GPS track files under a per-departure,
// per-crew directory layout.
package tracks

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var ErrUnsupportedType = errors.New("unsupported track file type")

var trackExtensions = map[string]struct{}{
	".gpx": {},
	".kml": {},
	".kmz": {},
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// IsTrackFile reports whether the file name carries a recognized track
// extension.
func IsTrackFile(name string) bool {
	_, ok := trackExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory tracks are stored under.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the stream under <dir>/departure_<id>/crew_<id>/<name> and
// returns the number of bytes written.
func (s *Store) Save(departureID, crewID int64, filename string, r io.Reader) (int64, error) {
	if !IsTrackFile(filename) {
		return 0, ErrUnsupportedType
	}

	name := unsafeNameRe.ReplaceAllString(filepath.Base(filename), "_")
	dir := filepath.Join(s.dir,
		fmt.Sprintf("departure_%d", departureID),
		fmt.Sprintf("crew_%d", crewID),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		return 0, err
	}
	return size, nil
}
