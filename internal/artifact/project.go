package artifact

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// File is one generated source file, addressed by a slash-separated
// project-relative path.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileSet is an intermediate bag of generated files.
type FileSet struct {
	Files []File `json:"files"`
}

func (s *FileSet) Kind() Kind  { return KindFileSet }
func (s *FileSet) Empty() bool { return len(s.Files) == 0 }

func (s *FileSet) Validate() error {
	if s.Empty() {
		return errors.New("file set is empty")
	}
	return validateFiles(s.Files)
}

// Framework is the frontend framework generation targets.
type Framework string

const (
	FrameworkVue2 Framework = "vue2"
	FrameworkVue3 Framework = "vue3"
)

// Valid reports whether f is a supported framework.
func (f Framework) Valid() bool {
	return f == FrameworkVue2 || f == FrameworkVue3
}

// EntryHTML returns the expected location of index.html for the framework.
func (f Framework) EntryHTML() string {
	if f == FrameworkVue2 {
		return "public/index.html"
	}
	return "index.html"
}

// ConfigFiles returns the accepted build configuration file names.
func (f Framework) ConfigFiles() []string {
	if f == FrameworkVue2 {
		return []string{"vue.config.js"}
	}
	return []string{"vite.config.ts", "vite.config.js"}
}

// FrontendProject is a generated Vue project.
type FrontendProject struct {
	Framework  Framework `json:"framework"`
	TypeScript bool      `json:"typescript"`
	Files      []File    `json:"files"`
}

func (p *FrontendProject) Kind() Kind  { return KindFrontend }
func (p *FrontendProject) Empty() bool { return len(p.Files) == 0 }

func (p *FrontendProject) Validate() error {
	if p.Empty() {
		return errors.New("frontend project has no files")
	}
	if !p.Framework.Valid() {
		return fmt.Errorf("frontend project has unsupported framework %q", p.Framework)
	}
	return validateFiles(p.Files)
}

// BackendStructure is the SpringBoot structure analysis: the entities,
// modules and tables the backend must provide.
type BackendStructure struct {
	Entities []string `json:"entities"`
	Modules  []string `json:"modules"`
	Tables   []string `json:"tables"`
}

func (s *BackendStructure) Kind() Kind  { return KindBackendStructure }
func (s *BackendStructure) Empty() bool { return len(s.Entities) == 0 && len(s.Modules) == 0 }

func (s *BackendStructure) Validate() error {
	if len(s.Entities) == 0 {
		return errors.New("backend structure lists no entities")
	}
	return nil
}

// BackendProject is a generated SpringBoot project plus its database schema.
type BackendProject struct {
	PackagePath string `json:"package_path"`
	Files       []File `json:"files"`
	Schema      string `json:"schema"`
}

func (p *BackendProject) Kind() Kind  { return KindBackend }
func (p *BackendProject) Empty() bool { return len(p.Files) == 0 && strings.TrimSpace(p.Schema) == "" }

func (p *BackendProject) Validate() error {
	if len(p.Files) == 0 {
		return errors.New("backend project has no files")
	}
	if strings.TrimSpace(p.Schema) == "" {
		return errors.New("backend project has no schema")
	}
	return validateFiles(p.Files)
}

// PackageDir converts a Java package path to its source directory.
func PackageDir(pkg string) string {
	return "src/main/java/" + strings.ReplaceAll(pkg, ".", "/")
}

// FindFile returns the file at p, or nil.
func FindFile(files []File, p string) *File {
	for i := range files {
		if files[i].Path == p {
			return &files[i]
		}
	}
	return nil
}

func validateFiles(files []File) error {
	seen := make(map[string]bool, len(files))
	var dups []string
	for _, f := range files {
		if f.Path == "" {
			return errors.New("file with empty path")
		}
		clean := path.Clean(f.Path)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("file path %q escapes the project root", f.Path)
		}
		if seen[clean] {
			dups = append(dups, clean)
		}
		seen[clean] = true
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return fmt.Errorf("duplicate file paths: %s", strings.Join(dups, ", "))
	}
	return nil
}

// MergeFiles combines file sets in order. A later set's file replaces an
// earlier file with the same cleaned path; the result is sorted by path.
func MergeFiles(sets ...[]File) []File {
	byPath := make(map[string]File)
	for _, set := range sets {
		for _, f := range set {
			p := path.Clean(f.Path)
			byPath[p] = File{Path: p, Content: f.Content}
		}
	}
	out := make([]File, 0, len(byPath))
	for _, f := range byPath {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
