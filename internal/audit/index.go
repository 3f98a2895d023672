package audit

import (
	"fmt"
	"strings"
)

// catalogIndex answers "is this asset registered" for one sweep.
type catalogIndex struct {
	ids map[string]struct{}
	// legacy holds the URLs of degraded entries, matched by substring.
	legacy []string
}

func (a *Auditor) loadIndex() (*catalogIndex, error) {
	entries, err := a.catalog.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	idx := &catalogIndex{ids: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if e.Degraded {
			idx.legacy = append(idx.legacy, e.URL)
			continue
		}
		idx.ids[e.ID] = struct{}{}
	}
	return idx, nil
}

func (idx *catalogIndex) has(assetID string) bool {
	if _, ok := idx.ids[assetID]; ok {
		return true
	}
	needle := "/" + assetID + "/"
	for _, u := range idx.legacy {
		if strings.Contains(u, needle) {
			return true
		}
	}
	return false
}
