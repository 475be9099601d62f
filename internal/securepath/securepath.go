// Package securepath resolves user-supplied paths against a base directory
// and refuses anything that could escape it.
package securepath

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
)

// HasTraversal reports whether p contains a ".." segment in either
// slash or platform separator form.
func HasTraversal(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// Resolve returns the absolute, cleaned form of p. Relative paths are taken
// relative to base; absolute paths are accepted only when they stay inside base.
func Resolve(base, p string) (string, error) {
	if p == "" {
		return "", apperr.InvalidArgument("empty path")
	}
	if HasTraversal(p) {
		return "", apperr.Security("path traversal rejected")
	}

	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	return contained(base, target)
}

// Join resolves rel strictly relative to base. rel must be a local path
// (no leading separator, no volume, no "..").
func Join(base, rel string) (string, error) {
	if rel == "" {
		return "", apperr.InvalidArgument("empty path")
	}
	if HasTraversal(rel) || !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", apperr.Security("path traversal rejected")
	}
	return contained(base, filepath.Join(base, filepath.FromSlash(rel)))
}

func contained(base, target string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", apperr.Storage("resolve base directory", err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", apperr.Storage("resolve path", err)
	}
	absBase = filepath.Clean(absBase)
	absTarget = filepath.Clean(absTarget)

	if !within(absBase, absTarget) {
		return "", apperr.Security("path outside allowed directory")
	}

	// Existing paths are also compared after following symlinks.
	realTarget, err := filepath.EvalSymlinks(absTarget)
	if err != nil {
		return absTarget, nil
	}
	realBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		realBase = absBase
	}
	if !within(filepath.Clean(realBase), filepath.Clean(realTarget)) {
		return "", apperr.Security("path outside allowed directory")
	}
	return absTarget, nil
}

func within(base, target string) bool {
	return target == base || strings.HasPrefix(target, base+string(filepath.Separator))
}

// RemoveFile deletes the regular file at path, which must lie inside base.
// Symlinks and non-regular files are refused. The error kind tells apart a
// missing file (NotFound), a refused target (SecurityViolation) and a failed
// removal (StorageError).
func RemoveFile(base, path string) error {
	if _, err := contained(base, path); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return classify("stat file", err)
	}
	if info.Mode()&fs.ModeSymlink != 0 || !info.Mode().IsRegular() {
		return apperr.Security("invalid file type for deletion")
	}

	if err := os.Remove(path); err != nil {
		return classify("remove file", err)
	}
	return nil
}

// classify converts a filesystem error into an apperr kind.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperr.Wrap(apperr.KindNotFound, "file not found", err)
	case errors.Is(err, fs.ErrPermission):
		return apperr.Wrap(apperr.KindStorage, op+": permission denied", err)
	default:
		return apperr.Storage(op, err)
	}
}
