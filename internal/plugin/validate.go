package plugin

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[A-Za-z0-9.]+)?$`)

var suspiciousKeywords = []string{"eval(", "rm -rf", "DROP TABLE", "../.."}

var executableExtensions = []string{".exe", ".dll", ".so", ".dylib", ".bat", ".sh"}

// DefaultValidator runs the built-in security validation step: a
// file-size cap, a check that rejects a path whose own file extension is
// executable (entries inside an archive are not inspected), metadata
// content checks for
// path traversal, suspicious keywords and version format, and — when the
// manifest declares one — a fingerprint match. Full signature
// verification against a trusted signing authority is left to a
// caller-supplied Validator, since no signing authority is specified
// here.
func DefaultValidator(path string, meta Metadata) error {
	if err := checkFileSize(path); err != nil {
		return err
	}
	if err := checkExecutableContent(path); err != nil {
		return err
	}
	if err := checkFingerprint(path, meta); err != nil {
		return err
	}
	return checkMetadataContent(meta)
}

// Fingerprint computes the sha3-256 digest of the file at path, hex
// encoded. Manifests use this to pin the expected archive content.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", pipelineerr.Wrap(pipelineerr.KindPlugin, "open plugin archive for fingerprinting", err)
	}
	defer f.Close()

	h := sha3.New256()
	if _, err := io.Copy(h, f); err != nil {
		return "", pipelineerr.Wrap(pipelineerr.KindPlugin, "hash plugin archive", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func checkFingerprint(path string, meta Metadata) error {
	if meta.ExpectedFingerprint == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindPlugin, "stat plugin archive", err)
	}
	if info.IsDir() {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "plugin declares a fingerprint but was loaded from a directory source")
	}
	got, err := Fingerprint(path)
	if err != nil {
		return err
	}
	if got != strings.ToLower(meta.ExpectedFingerprint) {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "plugin archive fingerprint does not match manifest")
	}
	return nil
}

func checkFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindPlugin, "stat plugin archive", err)
	}
	if info.IsDir() {
		return nil
	}
	if info.Size() > maxArchiveBytes {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "plugin archive exceeds the maximum allowed size")
	}
	return nil
}

func checkExecutableContent(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, bad := range executableExtensions {
		if ext == bad {
			return pipelineerr.New(pipelineerr.KindSecurityViolation, "plugin entry has a disallowed executable extension: "+ext)
		}
	}
	return nil
}

func checkMetadataContent(meta Metadata) error {
	if strings.Contains(meta.MainClass, "..") {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "main class contains a path traversal sequence")
	}
	for _, field := range []string{meta.ID, meta.Name, meta.Description, meta.MainClass} {
		for _, kw := range suspiciousKeywords {
			if strings.Contains(field, kw) {
				return pipelineerr.New(pipelineerr.KindSecurityViolation, "plugin metadata contains a suspicious keyword")
			}
		}
	}
	if !versionPattern.MatchString(meta.Version) {
		return pipelineerr.New(pipelineerr.KindPlugin, "plugin version "+meta.Version+" does not match semantic version format")
	}
	return nil
}
