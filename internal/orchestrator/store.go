package orchestrator

// Store is the persistence abstraction for jobs that have not yet been
// reported upstream. Jobs are never persisted across restarts, so the only
// implementation is in memory. Registry serializes all access.
type Store interface {
	GetJob(id string) (*TranscodeJob, bool)
	SetJob(j *TranscodeJob)
	DeleteJob(id string)
	ListJobIDs() []string
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	jobs map[string]*TranscodeJob
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[string]*TranscodeJob)}
}

// GetJob implements Store.GetJob.
func (s *InMemoryStore) GetJob(id string) (*TranscodeJob, bool) {
	j, ok := s.jobs[id]
	return j, ok
}

// SetJob implements Store.SetJob.
func (s *InMemoryStore) SetJob(j *TranscodeJob) {
	s.jobs[j.AssetID] = j
}

// DeleteJob implements Store.DeleteJob.
func (s *InMemoryStore) DeleteJob(id string) {
	delete(s.jobs, id)
}

// ListJobIDs implements Store.ListJobIDs.
func (s *InMemoryStore) ListJobIDs() []string {
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}
