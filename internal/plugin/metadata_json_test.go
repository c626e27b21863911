package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadataJSONReadsDeclaredFields(t *testing.T) {
	dir := t.TempDir()
	manifest := `{
		"id": "notifier",
		"version": "2.1.0",
		"name": "Notifier",
		"mainClass": "com.example.Notifier",
		"allowedPackages": ["com.example"],
		"blockedPackages": ["java.lang.reflect"],
		"fingerprint": "abc123"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o600))

	meta, err := ParseMetadataJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, "notifier", meta.ID)
	assert.Equal(t, "2.1.0", meta.Version)
	assert.Equal(t, "com.example.Notifier", meta.MainClass)
	assert.Equal(t, []string{"com.example"}, meta.AllowedPackages)
	assert.Equal(t, []string{"java.lang.reflect"}, meta.BlockedPackages)
	assert.Equal(t, "abc123", meta.ExpectedFingerprint)
}

func TestParseMetadataJSONRejectsMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("not json"), 0o600))

	_, err := ParseMetadataJSON(dir)
	assert.Error(t, err)
}

func TestParseMetadataJSONRequiresManifestFile(t *testing.T) {
	_, err := ParseMetadataJSON(t.TempDir())
	assert.Error(t, err)
}
