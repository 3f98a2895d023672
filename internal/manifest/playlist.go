package manifest

import (
	"fmt"
	"math"
	"strings"

	"hls-ingest/internal/ladder"

	"github.com/samber/lo"
)

const (
	// MasterFile is the master manifest basename inside every asset directory.
	MasterFile = "playlist.m3u8"

	// StreamInfMarker introduces one variant entry in a master manifest.
	StreamInfMarker = "#EXT-X-STREAM-INF"

	endListMarker = "#EXT-X-ENDLIST"
)

// BuildMaster renders a master manifest listing the named tiers. Entries follow
// the ladder's ascending-bitrate order no matter how present is ordered; names
// that are not in the ladder are ignored.
func BuildMaster(l *ladder.Ladder, present []string) string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")

	for _, tier := range l.Tiers() {
		if !lo.Contains(present, tier.Name) {
			continue
		}
		b.WriteString(fmt.Sprintf("%s:BANDWIDTH=%d,RESOLUTION=%s\n", StreamInfMarker, tier.Bandwidth(), tier.Resolution()))
		b.WriteString(tier.VariantFile())
		b.WriteString("\n")
	}

	return b.String()
}

// MasterTemplate is the static master manifest naming every tier of the ladder.
// The encoder does not emit a master, so ingestion installs this one.
func MasterTemplate(l *ladder.Ladder) string {
	return BuildMaster(l, l.Names())
}

// BuildVariant converts ordered segments of one tier into a VOD variant manifest.
// Each segment is advertised with the tier's configured segment duration.
func BuildVariant(tier ladder.Tier, segments []SegmentFile) string {
	var b strings.Builder

	duration := float64(tier.SegmentSeconds)

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", targetDuration(duration)))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	for _, seg := range segments {
		b.WriteString(fmt.Sprintf("#EXTINF:%.6f,\n", duration))
		b.WriteString(seg.Name)
		b.WriteString("\n")
	}

	b.WriteString(endListMarker + "\n")

	return b.String()
}

// IsValidMaster reports whether text carries at least one stream reference.
// Bandwidth values and URIs are not checked.
func IsValidMaster(text string) bool {
	return strings.Contains(text, StreamInfMarker)
}

// ParseVariant returns the URIs referenced by a variant manifest, in order.
func ParseVariant(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines = lo.Map(lines, func(line string, _ int) string { return strings.TrimSpace(line) })
	return lo.Filter(lines, func(line string, _ int) bool {
		return line != "" && !strings.HasPrefix(line, "#")
	})
}

// targetDuration returns the HLS #EXT-X-TARGETDURATION value: the ceiling of the
// segment duration in seconds.
func targetDuration(seconds float64) int {
	if seconds <= 0 {
		return 1
	}
	return int(math.Ceil(seconds))
}
