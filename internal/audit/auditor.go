package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"hls-ingest/internal/catalog"
	"hls-ingest/internal/fileutil"
	"hls-ingest/internal/ladder"
	"hls-ingest/internal/manifest"
	"hls-ingest/internal/platform/metrics"
)

// LockFile is created in the published root to keep repair sweeps from
// overlapping, including sweeps started by other processes.
const LockFile = ".audit.lock"

// DefaultWorkers is the number of asset directories audited in parallel.
const DefaultWorkers = 4

// ErrSweepInProgress is returned by Repair when another repair sweep holds the
// sweep lock.
var ErrSweepInProgress = errors.New("audit sweep already in progress")

// Auditor cross-checks the published asset tree against the manifest rules and
// the catalog.
type Auditor struct {
	root    string
	ladder  *ladder.Ladder
	catalog catalog.Store
	workers int
	log     *slog.Logger
	metrics *metrics.Metrics

	sweep sync.Mutex
	now   func() time.Time
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithWorkers bounds how many directories are audited concurrently.
func WithWorkers(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Auditor) { a.log = log }
}

// WithMetrics records finding counts. m may be nil.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Auditor) { a.metrics = m }
}

// New returns an Auditor for the asset directories directly under root.
func New(root string, l *ladder.Ladder, store catalog.Store, opts ...Option) *Auditor {
	a := &Auditor{
		root:    root,
		ladder:  l,
		catalog: store,
		workers: DefaultWorkers,
		log:     slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Root returns the published asset root.
func (a *Auditor) Root() string { return a.root }

// Scan reports drift without touching the filesystem.
func (a *Auditor) Scan(ctx context.Context) (*Report, error) {
	return a.run(ctx, false)
}

// Repair reports drift and rewrites broken master manifests. Only one repair
// sweep runs at a time; a concurrent call gets ErrSweepInProgress.
func (a *Auditor) Repair(ctx context.Context) (*Report, error) {
	if !a.sweep.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer a.sweep.Unlock()

	if _, err := os.Stat(a.root); err == nil {
		lock := flock.New(filepath.Join(a.root, LockFile))
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire audit lock: %w", err)
		}
		if !ok {
			return nil, ErrSweepInProgress
		}
		defer func() { _ = lock.Unlock() }()
	}

	return a.run(ctx, true)
}

func (a *Auditor) run(ctx context.Context, repair bool) (*Report, error) {
	rep := &Report{Root: a.root, Repair: repair, StartedAt: a.now()}

	dirs, err := a.assetDirs()
	if err != nil {
		return nil, err
	}
	idx, err := a.loadIndex()
	if err != nil {
		return nil, err
	}

	rep.Assets = make([]AssetReport, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, name := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep.Assets[i] = a.auditDir(name, idx, repair)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.FinishedAt = a.now()
	a.record(rep)
	return rep, nil
}

// assetDirs lists asset directories in the order the filesystem yields them.
// A missing root is an empty tree.
func (a *Auditor) assetDirs() ([]string, error) {
	entries, err := os.ReadDir(a.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a.root, err)
	}
	dirs := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.IsDir() && !strings.HasPrefix(e.Name(), ".")
	})
	return dirs, nil
}

func (a *Auditor) auditDir(name string, idx *catalogIndex, repair bool) AssetReport {
	dir := filepath.Join(a.root, name)
	ar := AssetReport{AssetID: name, Dir: dir}

	masterPath := filepath.Join(dir, manifest.MasterFile)
	master, err := os.ReadFile(masterPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		ar.add(KindMissingMaster, SeverityError, "", "no "+manifest.MasterFile)
	case err != nil:
		ar.add(KindUnreadable, SeverityError, "", err.Error())
	case !manifest.IsValidMaster(string(master)):
		ar.add(KindInvalidMaster, SeverityError, "", "no stream entries in "+manifest.MasterFile)
	default:
		ar.Published = true
	}

	if !ar.Published && repair {
		a.repairMaster(&ar)
	}

	for _, tier := range a.ladder.Tiers() {
		a.checkTier(&ar, tier)
	}

	ar.Registered = idx.has(name)
	if !ar.Registered {
		ar.add(KindUnregistered, SeverityWarning, "", "asset is not in the catalog")
	}

	if len(ar.Findings) > 0 {
		a.log.Info("audit findings",
			slog.String("asset_id", name),
			slog.Int("count", len(ar.Findings)),
			slog.Bool("published", ar.Published))
	}
	return ar
}

func (a *Auditor) repairMaster(ar *AssetReport) {
	res, err := manifest.RepairMaster(ar.Dir, a.ladder)
	if errors.Is(err, manifest.ErrNoRenditions) {
		ar.add(KindUnrepairable, SeverityError, "", "no variant manifests or segments to reference")
		return
	}
	if err != nil {
		ar.add(KindUnrepairable, SeverityError, "", err.Error())
		return
	}

	ar.Published = true
	ar.add(KindMasterRepaired, SeverityFixed, "", "master references "+strings.Join(res.Tiers, ", "))
	for _, tier := range res.Synthesized {
		ar.add(KindVariantSynthesized, SeverityFixed, tier, "variant manifest built from segment files")
	}
	for _, tier := range res.Tiers {
		if gaps, ok := res.Gaps[tier]; ok {
			ar.add(KindSegmentGap, SeverityWarning, tier, "missing indices "+formatIndices(gaps))
		}
	}
	a.log.Info("master manifest repaired",
		slog.String("asset_id", ar.AssetID),
		slog.Any("tiers", res.Tiers),
		slog.Any("synthesized", res.Synthesized))
}

// checkTier verifies that every segment a tier's variant manifest references
// exists. A tier with segments but no variant manifest is reported with its
// gaps, since a master built from variants will not include it.
func (a *Auditor) checkTier(ar *AssetReport, tier ladder.Tier) {
	variantPath := filepath.Join(ar.Dir, tier.VariantFile())
	text, err := os.ReadFile(variantPath)
	if errors.Is(err, os.ErrNotExist) {
		segs, gaps, err := manifest.EnumerateSegments(ar.Dir, tier.Name, a.ladder.SegmentExt)
		if err != nil {
			ar.add(KindUnreadable, SeverityError, tier.Name, err.Error())
			return
		}
		if len(segs) == 0 {
			return
		}
		ar.add(KindMissingVariant, SeverityWarning, tier.Name,
			fmt.Sprintf("%d segments without %s", len(segs), tier.VariantFile()))
		if len(gaps) > 0 {
			ar.add(KindSegmentGap, SeverityWarning, tier.Name, "missing indices "+formatIndices(gaps))
		}
		return
	}
	if err != nil {
		ar.add(KindUnreadable, SeverityError, tier.Name, err.Error())
		return
	}

	for _, ref := range manifest.ParseVariant(string(text)) {
		if strings.Contains(ref, "://") {
			continue
		}
		ok, err := fileutil.FileExists(filepath.Join(ar.Dir, filepath.FromSlash(ref)))
		if err != nil {
			ar.add(KindUnreadable, SeverityError, tier.Name, err.Error())
			continue
		}
		if !ok {
			ar.add(KindMissingSegment, SeverityError, tier.Name, ref)
		}
	}
}

func (a *Auditor) record(rep *Report) {
	counts := rep.Counts()
	a.log.Info("audit sweep finished",
		slog.String("root", rep.Root),
		slog.Bool("repair", rep.Repair),
		slog.Int("assets", len(rep.Assets)),
		slog.Int("findings", len(rep.Findings())),
		slog.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)))
	if a.metrics == nil {
		return
	}
	a.metrics.IncAuditSweeps()
	for kind, n := range counts {
		a.metrics.AddAuditFindings(string(kind), n)
	}
}

// formatIndices renders a gap list, eliding the middle of long lists.
func formatIndices(idx []int) string {
	const show = 10
	parts := lo.Map(idx, func(i int, _ int) string { return fmt.Sprint(i) })
	if len(parts) > show {
		return fmt.Sprintf("%s ... %s (%d total)",
			strings.Join(parts[:show/2], ", "), strings.Join(parts[len(parts)-show/2:], ", "), len(parts))
	}
	return strings.Join(parts, ", ")
}
