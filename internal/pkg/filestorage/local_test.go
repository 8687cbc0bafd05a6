package filestorage

import (
	"context"
	"io"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	assert.Equal(t, "homework/20240305140709_notes.pdf", NewKey("homework", "notes.pdf", at))
	assert.Equal(t, "homework/20240305140709_my_file_1_.pdf", NewKey("homework", "my file (1).pdf", at))
	assert.Equal(t, "homework/20240305140709_passwd", NewKey("homework", "../../etc/passwd", at))
	assert.Equal(t, "20240305140709_file", NewKey("", "..", at))
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("homework/20240305140709_notes.pdf"))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("/etc/passwd"))
	assert.False(t, ValidKey("../secret"))
	assert.False(t, ValidKey("homework/../../secret"))
	assert.False(t, ValidKey(`homework\notes.pdf`))
}

func TestUploadRulesCheck(t *testing.T) {
	rules := UploadRules{MaxBytes: 10 * 1024 * 1024, AllowedExtensions: []string{"png", "pdf"}}

	require.NoError(t, rules.Check(&multipart.FileHeader{Filename: "Scan.PDF", Size: 1024}))

	err := rules.Check(&multipart.FileHeader{Filename: "run.exe", Size: 10})
	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "not allowed")

	err = rules.Check(&multipart.FileHeader{Filename: "big.png", Size: 11 * 1024 * 1024})
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "File is too large (max 10 MB)", uerr.Message)

	require.Error(t, rules.Check(nil))
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	key, err := store.Save(ctx, "homework", "sheet.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "homework/20240102030405_sheet.pdf", key)

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete(ctx, key))
	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, ""))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "../outside.txt")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, store.Delete(context.Background(), "/abs/path"), ErrInvalidKey)
}

func TestLocalStorageSameSecondUploadsGetDistinctKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	first, err := store.Save(ctx, "homework", "sheet.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "homework", "sheet.pdf", strings.NewReader("two"))
	require.NoError(t, err)

	assert.Equal(t, "homework/20240102030405_sheet.pdf", first)
	assert.Equal(t, "homework/20240102030405_1_sheet.pdf", second)

	rc, err := store.Open(ctx, first)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "one", string(body))
}
