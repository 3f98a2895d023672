package catalog

import (
	"net/url"
	"strings"

	"hls-ingest/internal/manifest"
)

// URLShape describes where published assets are served:
// <BaseURL>/<Prefix>/<asset-id>/playlist.m3u8
type URLShape struct {
	BaseURL string
	Prefix  string
}

// ManifestURL returns the public master manifest URL for an asset.
func (s URLShape) ManifestURL(assetID string) string {
	parts := []string{strings.TrimRight(s.BaseURL, "/")}
	if p := strings.Trim(s.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, assetID, manifest.MasterFile)
	return strings.Join(parts, "/")
}

// AssetID extracts the asset identifier from a manifest URL. The identifier is
// the path segment right before the master manifest filename; when a Prefix is
// configured the segments before the identifier must end with it. Host and
// scheme are ignored so legacy URLs from other hosts still match.
func (s URLShape) AssetID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 || segs[len(segs)-1] != manifest.MasterFile {
		return "", false
	}
	id := segs[len(segs)-2]
	if id == "" || id == "." || id == ".." {
		return "", false
	}

	if p := strings.Trim(s.Prefix, "/"); p != "" {
		want := strings.Split(p, "/")
		head := segs[:len(segs)-2]
		if len(head) < len(want) {
			return "", false
		}
		for i, w := range want {
			if head[len(head)-len(want)+i] != w {
				return "", false
			}
		}
	}
	return id, true
}
