package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// SegmentFile is one media chunk of a tier found on disk.
type SegmentFile struct {
	Tier  string
	Index int
	Name  string
	Path  string
}

// EnumerateSegments lists the segments of tier in dir that match
// <tier>_<NNN>.<ext>, sorted by numeric index. Missing indices between 0 and the
// highest index found are returned as gaps; segments past a gap are still listed.
func EnumerateSegments(dir, tier, ext string) ([]SegmentFile, []int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", dir, err)
	}

	pattern := segmentPattern(tier, ext)
	byIndex := make(map[int]SegmentFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		// ReadDir is sorted by name; the first spelling of an index wins.
		if _, dup := byIndex[idx]; dup {
			continue
		}
		byIndex[idx] = SegmentFile{
			Tier:  tier,
			Index: idx,
			Name:  entry.Name(),
			Path:  filepath.Join(dir, entry.Name()),
		}
	}

	segments := make([]SegmentFile, 0, len(byIndex))
	for _, seg := range byIndex {
		segments = append(segments, seg)
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })

	return segments, findGaps(segments), nil
}

func segmentPattern(tier, ext string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(tier) + `_(\d{3,})\.` + regexp.QuoteMeta(ext) + `$`)
}

// findGaps expects segments sorted by index.
func findGaps(segments []SegmentFile) []int {
	var gaps []int
	next := 0
	for _, seg := range segments {
		for ; next < seg.Index; next++ {
			gaps = append(gaps, next)
		}
		next = seg.Index + 1
	}
	return gaps
}
