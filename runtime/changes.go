package runtime

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/afero"
)

// ChangeType classifies a changed input file.
type ChangeType int

const (
	ChangeAdded ChangeType = iota
	ChangeModified
	ChangeRemoved
)

func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// InputFileDetails describes one changed input file.
type InputFileDetails struct {
	Path string
	Type ChangeType
}

// InputChanges is the change set handed to an incremental action.
type InputChanges struct {
	incremental bool
	outOfDate   []InputFileDetails
	removed     []InputFileDetails
}

// IsIncremental reports whether the change set is relative to a previous execution.
// When false, every current input is reported as added and the action should rebuild everything.
func (c *InputChanges) IsIncremental() bool {
	return c.incremental
}

// OutOfDate calls fn for every added or modified input file, stopping at the first error.
func (c *InputChanges) OutOfDate(fn func(InputFileDetails) error) error {
	for _, d := range c.outOfDate {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Removed calls fn for every input file that existed in the previous execution but is gone now.
func (c *InputChanges) Removed(fn func(InputFileDetails) error) error {
	for _, d := range c.removed {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// HasChanges reports whether any input was added, modified or removed.
func (c *InputChanges) HasChanges() bool {
	return len(c.outOfDate) > 0 || len(c.removed) > 0
}

// Fingerprints maps file paths to content hashes.
type Fingerprints map[string]string

// Equal reports whether both fingerprint sets hold the same paths and hashes.
func (f Fingerprints) Equal(other Fingerprints) bool {
	if len(f) != len(other) {
		return false
	}
	for path, hash := range f {
		if other[path] != hash {
			return false
		}
	}
	return true
}

// NewInputChanges computes the change set between two fingerprint sets.
// A nil previous set yields a non-incremental change set.
func NewInputChanges(previous, current Fingerprints) *InputChanges {
	changes := &InputChanges{incremental: previous != nil}
	for _, path := range sortedPaths(current) {
		old, ok := previous[path]
		switch {
		case !ok:
			changes.outOfDate = append(changes.outOfDate, InputFileDetails{Path: path, Type: ChangeAdded})
		case old != current[path]:
			changes.outOfDate = append(changes.outOfDate, InputFileDetails{Path: path, Type: ChangeModified})
		}
	}
	for _, path := range sortedPaths(previous) {
		if _, ok := current[path]; !ok {
			changes.removed = append(changes.removed, InputFileDetails{Path: path, Type: ChangeRemoved})
		}
	}
	return changes
}

// rebuildChanges reports every current input of task as added.
func rebuildChanges(task Task) (*InputChanges, error) {
	current, err := Fingerprint(task.FileSystem(), task.Inputs().Files())
	if err != nil {
		return nil, err
	}
	return NewInputChanges(nil, current), nil
}

// Fingerprint hashes the files under paths. Directories are walked; missing paths are skipped.
func Fingerprint(fs afero.Fs, paths []string) (Fingerprints, error) {
	prints := make(Fingerprints)
	for _, root := range paths {
		info, err := fs.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %q: %w", root, err)
		}
		if !info.IsDir() {
			if prints[root], err = hashFile(fs, root); err != nil {
				return nil, err
			}
			continue
		}
		err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			hash, err := hashFile(fs, path)
			if err != nil {
				return err
			}
			prints[path] = hash
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %q: %w", root, err)
		}
	}
	return prints, nil
}

// FingerprintValues hashes the resolved value inputs, keyed by property name.
func FingerprintValues(props []*ValueProperty) Fingerprints {
	prints := make(Fingerprints, len(props))
	for _, p := range props {
		encoded, err := json.Marshal(p.Value())
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", p.Value()))
		}
		sum := sha256.Sum256(encoded)
		prints[p.Name] = hex.EncodeToString(sum[:])
	}
	return prints
}

func hashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sortedPaths(prints Fingerprints) []string {
	paths := make([]string, 0, len(prints))
	for path := range prints {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
