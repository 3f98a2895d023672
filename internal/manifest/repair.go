package manifest

import (
	"errors"
	"fmt"
	"path/filepath"

	"hls-ingest/internal/fileutil"
	"hls-ingest/internal/ladder"
)

// ErrNoRenditions is returned by RepairMaster when a directory holds neither
// variant manifests nor segments for any tier.
var ErrNoRenditions = errors.New("no renditions to reference")

// Repair describes what RepairMaster wrote.
type Repair struct {
	// Master is the master manifest text written to disk.
	Master string
	// Tiers lists the tiers the master references, in ladder order.
	Tiers []string
	// Synthesized lists tiers whose variant manifest was built from raw segments.
	Synthesized []string
	// Gaps maps a synthesized tier to the segment indices missing from it.
	Gaps map[string][]int
}

// RepairMaster rebuilds the master manifest of dir from the variant manifests
// that exist. A tier with segments but no variant manifest first gets one
// synthesized from its segment files. All writes replace whole files, so
// running it again on the result produces identical bytes.
func RepairMaster(dir string, l *ladder.Ladder) (*Repair, error) {
	rep := &Repair{Gaps: make(map[string][]int)}

	for _, tier := range l.Tiers() {
		variantPath := filepath.Join(dir, tier.VariantFile())
		ok, err := fileutil.FileExists(variantPath)
		if err != nil {
			return nil, err
		}
		if ok {
			rep.Tiers = append(rep.Tiers, tier.Name)
			continue
		}

		segments, gaps, err := EnumerateSegments(dir, tier.Name, l.SegmentExt)
		if err != nil {
			return nil, err
		}
		if len(segments) == 0 {
			continue
		}
		if err := WriteFile(variantPath, BuildVariant(tier, segments)); err != nil {
			return nil, err
		}
		rep.Tiers = append(rep.Tiers, tier.Name)
		rep.Synthesized = append(rep.Synthesized, tier.Name)
		if len(gaps) > 0 {
			rep.Gaps[tier.Name] = gaps
		}
	}

	if len(rep.Tiers) == 0 {
		return nil, fmt.Errorf("repair %s: %w", dir, ErrNoRenditions)
	}

	rep.Master = BuildMaster(l, rep.Tiers)
	if err := WriteFile(filepath.Join(dir, MasterFile), rep.Master); err != nil {
		return nil, err
	}
	return rep, nil
}

// WriteFile replaces the manifest at path with text.
func WriteFile(path, text string) error {
	return fileutil.WriteAtomic(path, []byte(text), 0o644)
}
