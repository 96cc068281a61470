// Package dfspath provides the absolute path value type shared by the
// naming server, storage servers and clients. A Path is immutable and
// comparable; equality and ordering are defined over the canonical string
// form, which makes Path usable as a map key and gives multi-path lock
// callers a total order to acquire in.
package dfspath

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Path is an absolute path rooted at "/". The zero value is the root.
type Path struct {
	raw string
}

// Root returns the root path "/".
func Root() Path {
	return Path{}
}

// Parse builds a Path from its string form. The string must begin with
// "/" and must not contain ":". Empty components are dropped, so
// "/a//b/" parses to "/a/b".
func Parse(s string) (Path, error) {
	if s == "" || !strings.HasPrefix(s, "/") || strings.Contains(s, ":") {
		return Path{}, ErrInvalidPath
	}

	var components []string
	for _, comp := range strings.Split(s, "/") {
		if comp != "" {
			components = append(components, comp)
		}
	}

	if len(components) == 0 {
		return Path{}, nil
	}
	return Path{raw: "/" + strings.Join(components, "/")}, nil
}

// Append returns base extended by one component. The component must be
// non-empty and must not contain "/" or ":".
func Append(base Path, component string) (Path, error) {
	if component == "" || strings.Contains(component, "/") || strings.Contains(component, ":") {
		return Path{}, ErrInvalidComponent
	}
	if base.IsRoot() {
		return Path{raw: "/" + component}, nil
	}
	return Path{raw: base.raw + "/" + component}, nil
}

func (p Path) IsRoot() bool {
	return p.raw == "" || p.raw == "/"
}

// Parent returns the path with the last component removed. It fails on
// the root.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, ErrNoParent
	}
	idx := strings.LastIndex(p.raw, "/")
	if idx == 0 {
		return Path{}, nil
	}
	return Path{raw: p.raw[:idx]}, nil
}

// Last returns the final component. It fails on the root.
func (p Path) Last() (string, error) {
	if p.IsRoot() {
		return "", ErrNoLast
	}
	idx := strings.LastIndex(p.raw, "/")
	return p.raw[idx+1:], nil
}

// Components returns the components from root downward. The root yields
// an empty slice.
func (p Path) Components() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(p.raw[1:], "/")
}

// IsSubpathOf reports whether other is a prefix of p. Every path is a
// subpath of itself, and every path is a subpath of the root.
func (p Path) IsSubpathOf(other Path) bool {
	if other.IsRoot() {
		return true
	}
	if p.raw == other.raw {
		return true
	}
	return strings.HasPrefix(p.raw, other.raw+"/")
}

func (p Path) String() string {
	if p.raw == "" {
		return "/"
	}
	return p.raw
}

// Compare orders paths lexicographically over the canonical string form.
func Compare(a, b Path) int {
	return strings.Compare(a.String(), b.String())
}

// List walks the local directory tree rooted at baseDir and returns the
// Paths of all regular files relative to it. Storage servers use this to
// build their advertised file list at registration.
func List(baseDir string) ([]Path, error) {
	var paths []Path
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		p, err := Parse("/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
