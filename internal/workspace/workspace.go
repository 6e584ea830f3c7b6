// Package workspace wraps the generated application tree behind a billy
// filesystem so synthesizers never touch the host filesystem directly and
// tests can run against an in-memory tree.
package workspace

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ArchiveDir is the directory name archived artifacts move into. The
// leading underscore keeps archived trees out of any build of the
// generated module.
const ArchiveDir = "_archive"

type Workspace struct {
	fs billy.Filesystem

	// Module is the import path of the generated application module;
	// generated cross-package imports are formed against it.
	Module string

	// Now stamps archive directories; overridable in tests.
	Now func() time.Time
}

func New(fs billy.Filesystem, module string) *Workspace {
	return &Workspace{fs: fs, Module: module, Now: time.Now}
}

// WriteFile writes data, creating parent directories as needed.
func (w *Workspace) WriteFile(p string, data []byte) error {
	if dir := path.Dir(p); dir != "." && dir != "/" {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(w.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func (w *Workspace) ReadFile(p string) ([]byte, error) {
	return util.ReadFile(w.fs, p)
}

// Remove deletes a single file. Removing a file that is already absent
// is not an error.
func (w *Workspace) Remove(p string) error {
	err := w.fs.Remove(p)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// EnsureDir creates a directory (and parents) if absent.
func (w *Workspace) EnsureDir(p string) error {
	return w.fs.MkdirAll(p, 0o755)
}

// Exists reports whether a file or directory exists.
func (w *Workspace) Exists(p string) bool {
	_, err := w.fs.Stat(p)
	return err == nil
}

// DirNames lists the subdirectory names of p, sorted. A missing parent
// reads as empty.
func (w *Workspace) DirNames(p string) ([]string, error) {
	entries, err := w.fs.ReadDir(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", p, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Archive moves src into archiveRoot under "<base>_<timestamp>" instead
// of deleting it. Returns the destination path. The archive root must not
// live inside src: copying a tree into itself never terminates.
func (w *Workspace) Archive(src, archiveRoot string) (string, error) {
	if archiveRoot == src || strings.HasPrefix(archiveRoot, src+"/") {
		return "", fmt.Errorf("archive root %s is inside %s", archiveRoot, src)
	}
	info, err := w.fs.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	tag := w.Now().UTC().Format("20060102T150405")
	base := path.Base(src)
	var dest string
	if info.IsDir() {
		dest = path.Join(archiveRoot, base+"_"+tag)
	} else {
		ext := path.Ext(base)
		dest = path.Join(archiveRoot, strings.TrimSuffix(base, ext)+"_"+tag+ext)
	}
	if err := w.move(src, dest); err != nil {
		return "", fmt.Errorf("archive %s: %w", src, err)
	}
	return dest, nil
}

// move copies src (file or tree) to dest and removes the original.
// Copy-then-delete works across every billy backend, unlike Rename.
func (w *Workspace) move(src, dest string) error {
	if err := w.copyTree(src, dest); err != nil {
		return err
	}
	return w.RemoveAll(src)
}

func (w *Workspace) copyTree(src, dest string) error {
	info, err := w.fs.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		data, err := util.ReadFile(w.fs, src)
		if err != nil {
			return err
		}
		return w.WriteFile(dest, data)
	}
	if err := w.fs.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	entries, err := w.fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.copyTree(path.Join(src, e.Name()), path.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAll deletes a file or directory tree. Absent paths are ignored.
func (w *Workspace) RemoveAll(p string) error {
	info, err := w.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		entries, err := w.fs.ReadDir(p)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := w.RemoveAll(path.Join(p, e.Name())); err != nil {
				return err
			}
		}
	}
	return w.fs.Remove(p)
}
