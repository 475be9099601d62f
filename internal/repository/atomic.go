// Package repository provides persistence implementations for catalogs,
// snapshots, OAuth sessions and small local state files.
package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
)

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers see either the old or the new document.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Storage("create directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperr.Storage("create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apperr.Storage("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperr.Storage("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Storage("close temp file", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return apperr.Storage("chmod temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apperr.Storage("rename temp file", err)
	}
	return nil
}

// writeJSONAtomic encodes v as indented JSON without HTML escaping and
// writes it atomically.
func writeJSONAtomic(path string, v any, perm os.FileMode) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return apperr.Storage("encode json", err)
	}
	return writeFileAtomic(path, buf.Bytes(), perm)
}

// readJSON decodes the file at path into v. A missing file is NotFound.
func readJSON(path, what string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.Wrap(apperr.KindNotFound, what+" not found", err)
		}
		return apperr.Storage("read "+what, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Storage("parse "+what, err)
	}
	return nil
}
