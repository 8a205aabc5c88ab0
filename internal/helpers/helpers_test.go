package helpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		ref, err := NewReference()
		require.NoError(t, err)
		require.Len(t, ref, ReferenceLength)
		for _, r := range ref {
			assert.True(t, strings.ContainsRune(ReferenceAlphabet, r), "unexpected %q in %s", r, ref)
		}
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestBadgeSigner(t *testing.T) {
	signer := NewBadgeSigner("secret")

	payload := signer.Payload("ABC123")
	assert.True(t, strings.HasPrefix(payload, "attendee:ABC123;signature:"))

	ref, ok := signer.Verify(payload)
	assert.True(t, ok)
	assert.Equal(t, "ABC123", ref)

	tests := []struct {
		name    string
		payload string
	}{
		{"other secret", NewBadgeSigner("other").Payload("ABC123")},
		{"swapped ref", strings.Replace(payload, "ABC123", "XYZ789", 1)},
		{"missing signature", "attendee:ABC123"},
		{"empty ref", "attendee:;signature:00"},
		{"garbage", "purchase:1;ticket:2"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := signer.Verify(tt.payload)
			assert.False(t, ok)
		})
	}
}

func TestParseOptionalBool(t *testing.T) {
	b, err := ParseOptionalBool("")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = ParseOptionalBool("true")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, *b)

	_, err = ParseOptionalBool("maybe")
	assert.Error(t, err)
}

func TestOpenCSVFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "tickets.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,email\nAda,ada@example.com\n"), 0o600))

	f, err := OpenCSVFile(csvPath)
	require.NoError(t, err)
	defer f.Close()
	head := make([]byte, 4)
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, "name", string(head))

	_, err = OpenCSVFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = OpenCSVFile(dir)
	assert.Error(t, err)

	pngPath := filepath.Join(dir, "image.csv")
	require.NoError(t, os.WriteFile(pngPath, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	_, err = OpenCSVFile(pngPath)
	assert.ErrorContains(t, err, "invalid file type")

	_, err = OpenCSVFile(csvPath, UploadConfig{MaxSizeBytes: 4, AllowedMimeTypes: []string{"text/plain"}})
	assert.ErrorContains(t, err, "exceeds maximum")
}
