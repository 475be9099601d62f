package securepath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
)

func TestHasTraversal(t *testing.T) {
	assert.True(t, HasTraversal("../../etc/passwd"))
	assert.True(t, HasTraversal("images/../../x"))
	assert.True(t, HasTraversal(`images\..\x`))
	assert.False(t, HasTraversal("images/a..b.jpg"))
	assert.False(t, HasTraversal("catalog/catalog.json"))
}

func TestResolve(t *testing.T) {
	base := t.TempDir()

	got, err := Resolve(base, "catalog/catalog.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "catalog", "catalog.json"), got)

	abs := filepath.Join(base, "x.json")
	got, err = Resolve(base, abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	_, err = Resolve(base, "../outside.json")
	assert.True(t, apperr.Is(err, apperr.KindSecurity))

	_, err = Resolve(base, "/etc/passwd")
	assert.True(t, apperr.Is(err, apperr.KindSecurity))

	_, err = Resolve(base, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestJoin(t *testing.T) {
	base := t.TempDir()

	got, err := Join(base, "images/lia.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "images", "lia.jpg"), got)

	for _, bad := range []string{"/etc/passwd", "../x", "images/../../x"} {
		_, err := Join(base, bad)
		assert.True(t, apperr.Is(err, apperr.KindSecurity), bad)
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o600))
	if err := os.Symlink(outside, filepath.Join(base, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Join(base, "link/secret.txt")
	assert.True(t, apperr.Is(err, apperr.KindSecurity))
}

func TestRemoveFile(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "a.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	require.NoError(t, RemoveFile(base, file))
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	err = RemoveFile(base, file)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	dir := filepath.Join(base, "sub")
	require.NoError(t, os.Mkdir(dir, 0o755))
	err = RemoveFile(base, dir)
	assert.True(t, apperr.Is(err, apperr.KindSecurity))

	outsideFile := filepath.Join(t.TempDir(), "b.jpg")
	require.NoError(t, os.WriteFile(outsideFile, []byte("x"), 0o644))
	err = RemoveFile(base, outsideFile)
	assert.True(t, apperr.Is(err, apperr.KindSecurity))
	_, statErr := os.Stat(outsideFile)
	assert.NoError(t, statErr)
}

func TestRemoveFile_RefusesSymlink(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real.jpg")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	link := filepath.Join(base, "link.jpg")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	err := RemoveFile(base, link)
	assert.True(t, apperr.Is(err, apperr.KindSecurity))
	_, statErr := os.Lstat(link)
	assert.NoError(t, statErr)
}
