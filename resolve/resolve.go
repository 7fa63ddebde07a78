// Package resolve maps logical request paths onto override files or
// bundled resources.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/assets/fileutils"
)

var ErrNotFound = errors.New("asset not found")

// Rule redirects a logical path, or every path below a prefix, to a
// location on the local filesystem.
type Rule struct {
	Prefix string
	Path   string
}

type Options struct {
	Resources    fs.FS  // bundled resource set
	ResourceRoot string // root of the assets inside Resources
	MountPrefix  string // URL path the assets are served under
	IndexFile    string // served for directories, empty to disable
	Overrides    []Rule // checked in order before Resources
	Logger       zerolog.Logger
}

// Location is the physical source chosen for a logical path.
type Location struct {
	Path     string // filesystem path when Override is set, Resources path otherwise
	Override bool
}

type Resolver struct {
	resources    fs.FS
	resourceRoot string
	mountPrefix  string
	indexFile    string
	overrides    []Rule
	logger       zerolog.Logger
}

func New(o Options) (*Resolver, error) {
	if o.Resources == nil {
		return nil, fmt.Errorf("no resource set given")
	}
	if o.IndexFile != "" && strings.ContainsRune(o.IndexFile, '/') {
		return nil, fmt.Errorf("index file %q must be a file name", o.IndexFile)
	}
	overrides := make([]Rule, 0, len(o.Overrides))
	for _, rule := range o.Overrides {
		if rule.Prefix == "" || rule.Path == "" {
			return nil, fmt.Errorf("override rules need both a prefix and a path")
		}
		if !strings.HasPrefix(rule.Prefix, "/") {
			rule.Prefix = "/" + rule.Prefix
		}
		overrides = append(overrides, rule)
	}
	return &Resolver{
		resources:    o.Resources,
		resourceRoot: strings.Trim(o.ResourceRoot, "/"),
		mountPrefix:  NormalizeMountPrefix(o.MountPrefix),
		indexFile:    o.IndexFile,
		overrides:    overrides,
		logger:       o.Logger,
	}, nil
}

// NormalizeMountPrefix trims trailing separators, an empty prefix is the root.
func NormalizeMountPrefix(prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return "/"
	}
	return prefix
}

func (r *Resolver) MountPrefix() string {
	return r.mountPrefix
}

// Resolve picks the source for key, the full logical path including the
// mount prefix. A key outside the mount prefix is a programming error and
// panics.
func (r *Resolver) Resolve(key string) (Location, error) {
	if !strings.HasPrefix(key, r.mountPrefix) {
		panic(fmt.Sprintf("resolve: key %q is not below mount prefix %q", key, r.mountPrefix))
	}
	relative := "/" + strings.TrimLeft(strings.TrimPrefix(key, r.mountPrefix), "/")

	if loc, ok := r.resolveOverride(relative); ok {
		return loc, nil
	}
	return r.resolveResource(relative)
}

func (r *Resolver) resolveOverride(relative string) (Location, bool) {
	for _, rule := range r.overrides {
		var file string
		if rule.Prefix == relative {
			file = rule.Path
		} else if strings.HasPrefix(relative, rule.Prefix) {
			// path.Clean on a rooted path drops any leading "..".
			rest := path.Clean("/" + relative[len(rule.Prefix):])
			file = filepath.Join(rule.Path, filepath.FromSlash(rest))
		} else {
			continue
		}

		if fileutils.IsDir(file) {
			if r.indexFile == "" {
				continue
			}
			file = filepath.Join(file, r.indexFile)
		}
		if fileutils.IsRegular(file) {
			return Location{Path: file, Override: true}, true
		}
	}
	return Location{}, false
}

func (r *Resolver) resolveResource(relative string) (Location, error) {
	requested := strings.Trim(relative, "/")
	name := strings.Trim(r.resourceRoot+"/"+requested, "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return Location{}, fmt.Errorf("%w: invalid path %q", ErrNotFound, relative)
	}

	info, err := fs.Stat(r.resources, name)
	if err != nil {
		return Location{}, notFound(name, err)
	}
	if info.IsDir() {
		if r.indexFile == "" {
			return Location{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, name)
		}
		name = path.Join(name, r.indexFile)
		if info, err = fs.Stat(r.resources, name); err != nil {
			return Location{}, notFound(name, err)
		}
		if info.IsDir() {
			return Location{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, name)
		}
	}
	return Location{Path: name}, nil
}

func notFound(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fmt.Errorf("could not stat resource %s: %w", name, err)
}
