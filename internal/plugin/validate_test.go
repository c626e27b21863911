package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempArchive(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.zip")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFingerprintIsStableForIdenticalContent(t *testing.T) {
	path := writeTempArchive(t, "plugin-bytes")
	first, err := Fingerprint(path)
	require.NoError(t, err)
	second, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestDefaultValidatorAcceptsMatchingFingerprint(t *testing.T) {
	path := writeTempArchive(t, "plugin-bytes")
	digest, err := Fingerprint(path)
	require.NoError(t, err)

	meta := Metadata{ID: "p", Version: "1.0.0", MainClass: "Main", ExpectedFingerprint: digest}
	assert.NoError(t, DefaultValidator(path, meta))
}

func TestDefaultValidatorRejectsMismatchedFingerprint(t *testing.T) {
	path := writeTempArchive(t, "plugin-bytes")

	meta := Metadata{ID: "p", Version: "1.0.0", MainClass: "Main", ExpectedFingerprint: "0000"}
	err := DefaultValidator(path, meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprint")
}

func TestDefaultValidatorSkipsFingerprintCheckWhenUnset(t *testing.T) {
	path := writeTempArchive(t, "plugin-bytes")
	meta := Metadata{ID: "p", Version: "1.0.0", MainClass: "Main"}
	assert.NoError(t, DefaultValidator(path, meta))
}
