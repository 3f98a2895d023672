package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one published asset.
type Record struct {
	URL          string    `json:"url"`
	ID           string    `json:"id"`
	UploadDate   time.Time `json:"uploadDate"`
	FileSizeMB   *float64  `json:"fileSize,omitempty"`
	Duration     *float64  `json:"duration,omitempty"`
	OriginalName *string   `json:"originalName,omitempty"`
}

// Entry is one line of the catalog as read back. A line that could not be
// parsed into a Record is Degraded: its URL holds the best-effort address
// (the raw line for bare URLs) and its ID a placeholder unknown-<line>.
type Entry struct {
	Record
	Degraded bool
	// Line is the zero-based index among the catalog's non-blank lines.
	Line int
	// Raw is the line as stored.
	Raw string
}

// SizeMB converts a byte count to megabytes rounded to two decimals.
func SizeMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*100) / 100
}

// PlaceholderID is the identifier given to a degraded entry.
func PlaceholderID(line int) string {
	return "unknown-" + strconv.Itoa(line)
}

func marshalRecord(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	return b, nil
}

// wireRecord accepts every historical spelling of a catalog object.
type wireRecord struct {
	URL          *string         `json:"url"`
	ID           *string         `json:"id"`
	UploadDate   json.RawMessage `json:"uploadDate"`
	FileSize     json.RawMessage `json:"fileSize"`
	Duration     json.RawMessage `json:"duration"`
	OriginalName *string         `json:"originalName"`
	FileName     *string         `json:"fileName"`
}

// parseLine turns one stored line into an Entry. It never fails: anything that
// is not a usable JSON object becomes a degraded entry.
func parseLine(raw string, line int) Entry {
	text := strings.TrimSpace(raw)
	degraded := Entry{
		Record:   Record{URL: text, ID: PlaceholderID(line)},
		Degraded: true,
		Line:     line,
		Raw:      raw,
	}

	if !strings.HasPrefix(text, "{") {
		return degraded
	}
	var w wireRecord
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return degraded
	}

	rec := Record{
		UploadDate:   parseTime(w.UploadDate),
		FileSizeMB:   parseNumber(w.FileSize),
		Duration:     parseNumber(w.Duration),
		OriginalName: w.OriginalName,
	}
	if rec.OriginalName == nil {
		rec.OriginalName = w.FileName
	}
	if w.URL != nil {
		rec.URL = *w.URL
	}
	if w.ID == nil || *w.ID == "" {
		rec.ID = PlaceholderID(line)
		return Entry{Record: rec, Degraded: true, Line: line, Raw: raw}
	}
	rec.ID = *w.ID
	return Entry{Record: rec, Line: line, Raw: raw}
}

func parseTime(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseNumber reads a JSON number or a numeric string such as "12.34".
func parseNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
