package audit

import (
	"time"

	"github.com/samber/lo"
)

// Kind classifies a finding.
type Kind string

const (
	KindMissingMaster      Kind = "missing_master"
	KindInvalidMaster      Kind = "invalid_master"
	KindMasterRepaired     Kind = "master_repaired"
	KindVariantSynthesized Kind = "variant_synthesized"
	KindMissingVariant     Kind = "missing_variant"
	KindSegmentGap         Kind = "segment_gap"
	KindMissingSegment     Kind = "missing_segment"
	KindUnregistered       Kind = "unregistered"
	KindUnrepairable       Kind = "unrepairable"
	KindUnreadable         Kind = "unreadable"
)

// Severity tells the caller what, if anything, to do about a finding.
type Severity string

const (
	// SeverityFixed marks a change made by a repair sweep.
	SeverityFixed Severity = "fixed"
	// SeverityWarning marks drift that leaves the asset servable.
	SeverityWarning Severity = "warning"
	// SeverityError marks drift that breaks playback of the asset or a tier.
	SeverityError Severity = "error"
)

// Finding is one observation about one asset directory.
type Finding struct {
	AssetID  string   `json:"asset_id"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Tier     string   `json:"tier,omitempty"`
	Detail   string   `json:"detail"`
}

// AssetReport is the outcome for one directory under the published root.
type AssetReport struct {
	AssetID string `json:"asset_id"`
	Dir     string `json:"dir"`
	// Published is true when the directory ends the sweep with a valid master.
	Published  bool      `json:"published"`
	Registered bool      `json:"registered"`
	Findings   []Finding `json:"findings,omitempty"`
}

// Report is the outcome of one sweep. Assets keep the directory listing order.
type Report struct {
	Root       string        `json:"root"`
	Repair     bool          `json:"repair"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Assets     []AssetReport `json:"assets"`
}

// Findings returns every finding across all assets.
func (r *Report) Findings() []Finding {
	return lo.FlatMap(r.Assets, func(a AssetReport, _ int) []Finding { return a.Findings })
}

// Counts returns the number of findings per kind.
func (r *Report) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, f := range r.Findings() {
		counts[f.Kind]++
	}
	return counts
}

// Clean reports whether the sweep found nothing but fixes.
func (r *Report) Clean() bool {
	return lo.EveryBy(r.Findings(), func(f Finding) bool { return f.Severity == SeverityFixed })
}

func (a *AssetReport) add(kind Kind, sev Severity, tier, detail string) {
	a.Findings = append(a.Findings, Finding{
		AssetID:  a.AssetID,
		Kind:     kind,
		Severity: sev,
		Tier:     tier,
		Detail:   detail,
	})
}
