package plugin

import (
	"os"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// ParseMetadataJSON reads a plugin manifest from the "manifest.json" file
// inside dir and extracts Metadata's fields by gjson path, the same
// get-by-path style used against fetched JSON bodies elsewhere in this
// stack. It is a ready-made MetadataParser for embedders whose archives
// carry a JSON manifest rather than a plugin.properties file.
func ParseMetadataJSON(dir string) (Metadata, error) {
	manifestPath := dir + string(os.PathSeparator) + "manifest.json"
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return Metadata{}, pipelineerr.Wrap(pipelineerr.KindPlugin, "read plugin manifest", err)
	}
	if !gjson.ValidBytes(raw) {
		return Metadata{}, pipelineerr.New(pipelineerr.KindPlugin, "plugin manifest is not valid JSON")
	}

	doc := gjson.ParseBytes(raw)
	meta := Metadata{
		ID:                  doc.Get("id").String(),
		Version:             doc.Get("version").String(),
		Name:                doc.Get("name").String(),
		Description:         doc.Get("description").String(),
		Author:              doc.Get("author").String(),
		MainClass:           doc.Get("mainClass").String(),
		ExpectedFingerprint: doc.Get("fingerprint").String(),
	}
	for _, pkg := range doc.Get("allowedPackages").Array() {
		meta.AllowedPackages = append(meta.AllowedPackages, pkg.String())
	}
	for _, pkg := range doc.Get("blockedPackages").Array() {
		meta.BlockedPackages = append(meta.BlockedPackages, pkg.String())
	}
	return meta, nil
}
