package manifest

import (
	"strings"
	"testing"

	"hls-ingest/internal/ladder"
)

func TestBuildMaster_two_tiers_in_ladder_order(t *testing.T) {
	out := BuildMaster(ladder.Default(), []string{"720p", "360p"})

	if !strings.HasPrefix(out, "#EXTM3U\n") {
		t.Error("expected #EXTM3U header")
	}
	if got := strings.Count(out, StreamInfMarker); got != 2 {
		t.Fatalf("expected 2 stream entries, got %d: %s", got, out)
	}
	i360 := strings.Index(out, "360p.m3u8")
	i720 := strings.Index(out, "720p.m3u8")
	if i360 < 0 || i720 < 0 || i360 > i720 {
		t.Errorf("expected 360p before 720p: %s", out)
	}
	if strings.Contains(out, "480p") || strings.Contains(out, "1080p") {
		t.Errorf("unexpected tiers in master: %s", out)
	}
	if !strings.Contains(out, "#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\n360p.m3u8\n") {
		t.Errorf("unexpected 360p entry: %s", out)
	}
}

func TestBuildMaster_every_subset(t *testing.T) {
	l := ladder.Default()
	names := l.Names()

	for mask := 0; mask < 1<<len(names); mask++ {
		var subset []string
		// Supply the subset in reverse to prove input order does not matter.
		for i := len(names) - 1; i >= 0; i-- {
			if mask&(1<<i) != 0 {
				subset = append(subset, names[i])
			}
		}

		out := BuildMaster(l, subset)

		var listed []string
		for _, uri := range ParseVariant(out) {
			listed = append(listed, strings.TrimSuffix(uri, ".m3u8"))
		}
		var want []string
		for i, name := range names {
			if mask&(1<<i) != 0 {
				want = append(want, name)
			}
		}
		if strings.Join(listed, ",") != strings.Join(want, ",") {
			t.Errorf("mask %b: listed %v want %v", mask, listed, want)
		}
	}
}

func TestBuildMaster_ignores_unknown_tier(t *testing.T) {
	out := BuildMaster(ladder.Default(), []string{"4k"})
	if IsValidMaster(out) {
		t.Errorf("master for unknown tier should carry no stream entries: %s", out)
	}
}

func TestMasterTemplate_lists_full_ladder(t *testing.T) {
	out := MasterTemplate(ladder.Default())
	if got := strings.Count(out, StreamInfMarker); got != 4 {
		t.Errorf("expected 4 stream entries, got %d", got)
	}
	if !strings.Contains(out, "BANDWIDTH=5000000,RESOLUTION=1920x1080\n1080p.m3u8") {
		t.Errorf("missing 1080p entry: %s", out)
	}
}

func TestBuildVariant(t *testing.T) {
	tier, _ := ladder.Default().Lookup("720p")
	segs := []SegmentFile{
		{Tier: "720p", Index: 0, Name: "720p_000.ts"},
		{Tier: "720p", Index: 1, Name: "720p_001.ts"},
		{Tier: "720p", Index: 2, Name: "720p_002.ts"},
	}
	out := BuildVariant(tier, segs)

	if !strings.Contains(out, "#EXT-X-TARGETDURATION:4\n") {
		t.Errorf("expected target duration 4: %s", out)
	}
	if !strings.Contains(out, "#EXT-X-MEDIA-SEQUENCE:0\n") {
		t.Errorf("expected media sequence 0: %s", out)
	}
	if got := strings.Count(out, "#EXTINF:4.000000,"); got != 3 {
		t.Errorf("expected 3 EXTINF entries, got %d", got)
	}
	if !strings.HasSuffix(out, "#EXT-X-ENDLIST\n") {
		t.Errorf("playlist should end with ENDLIST: %s", out)
	}
	refs := ParseVariant(out)
	if strings.Join(refs, ",") != "720p_000.ts,720p_001.ts,720p_002.ts" {
		t.Errorf("unexpected segment order: %v", refs)
	}
}

func TestIsValidMaster(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"header_only", "#EXTM3U\n#EXT-X-VERSION:3\n", false},
		{"one_stream", "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nx.m3u8\n", true},
		{"bogus_values_still_valid", "#EXT-X-STREAM-INF:BANDWIDTH=abc\n", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidMaster(tc.text); got != tc.want {
				t.Errorf("IsValidMaster = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseVariant_skips_tags_and_blank_lines(t *testing.T) {
	text := "#EXTM3U\r\n#EXTINF:4.0,\r\n720p_000.ts\r\n\r\n#EXTINF:4.0,\r\n  720p_001.ts  \r\n#EXT-X-ENDLIST\r\n"
	refs := ParseVariant(text)
	if len(refs) != 2 || refs[0] != "720p_000.ts" || refs[1] != "720p_001.ts" {
		t.Errorf("unexpected refs: %v", refs)
	}
}
