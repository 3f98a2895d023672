package ladder

import "fmt"

// Tier describes one rendition in the adaptive ladder. Bitrates are in kbit/s.
type Tier struct {
	Name           string
	Width          int
	Height         int
	VideoBitrate   int
	MaxRate        int
	BufSize        int
	AudioBitrate   int
	SegmentSeconds int
}

// Bandwidth is the BANDWIDTH attribute advertised for the tier in a master manifest (bit/s).
func (t Tier) Bandwidth() int {
	return t.VideoBitrate * 1000
}

// Resolution returns the WxH form used in RESOLUTION attributes.
func (t Tier) Resolution() string {
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}

// VariantFile is the basename of the tier's variant manifest.
func (t Tier) VariantFile() string {
	return t.Name + ".m3u8"
}

// SegmentPattern is the encoder filename template for the tier's segments.
func (t Tier) SegmentPattern(ext string) string {
	return t.Name + "_%03d." + ext
}

// Ladder is an ordered set of tiers, ascending by bitrate.
type Ladder struct {
	tiers      []Tier
	SegmentExt string
}

// DefaultSegmentExt is the container extension of encoded segments.
const DefaultSegmentExt = "ts"

// New validates tiers and returns a ladder. Tier names must be unique and the
// sequence must ascend by video bitrate.
func New(tiers []Tier) (*Ladder, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("ladder: no tiers")
	}
	seen := make(map[string]struct{}, len(tiers))
	for i, t := range tiers {
		if t.Name == "" {
			return nil, fmt.Errorf("ladder: tier %d has no name", i)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("ladder: duplicate tier %q", t.Name)
		}
		seen[t.Name] = struct{}{}
		if t.SegmentSeconds <= 0 {
			return nil, fmt.Errorf("ladder: tier %q has no segment duration", t.Name)
		}
		if i > 0 && t.VideoBitrate <= tiers[i-1].VideoBitrate {
			return nil, fmt.Errorf("ladder: tier %q is not above %q in bitrate", t.Name, tiers[i-1].Name)
		}
	}
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return &Ladder{tiers: out, SegmentExt: DefaultSegmentExt}, nil
}

// Default returns the fixed 360p/480p/720p/1080p ladder.
func Default() *Ladder {
	l, err := New([]Tier{
		{Name: "360p", Width: 640, Height: 360, VideoBitrate: 800, MaxRate: 856, BufSize: 1200, AudioBitrate: 96, SegmentSeconds: 4},
		{Name: "480p", Width: 842, Height: 480, VideoBitrate: 1400, MaxRate: 1498, BufSize: 2100, AudioBitrate: 128, SegmentSeconds: 4},
		{Name: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, MaxRate: 2996, BufSize: 4200, AudioBitrate: 128, SegmentSeconds: 4},
		{Name: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5000, MaxRate: 5350, BufSize: 7500, AudioBitrate: 192, SegmentSeconds: 4},
	})
	if err != nil {
		panic(err)
	}
	return l
}

// Tiers returns a copy of the tiers in ladder order.
func (l *Ladder) Tiers() []Tier {
	out := make([]Tier, len(l.tiers))
	copy(out, l.tiers)
	return out
}

// Lookup finds a tier by name.
func (l *Ladder) Lookup(name string) (Tier, bool) {
	for _, t := range l.tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// Names returns tier names in ladder order.
func (l *Ladder) Names() []string {
	names := make([]string, len(l.tiers))
	for i, t := range l.tiers {
		names[i] = t.Name
	}
	return names
}
