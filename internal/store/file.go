package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/joelkehle/venturefit/internal/assessment"
)

type fileState struct {
	Sessions  map[string]assessment.Session          `json:"sessions"`
	Responses map[string][]assessment.Response       `json:"responses"`
	Results   map[string]assessment.AssessmentResult `json:"results"`
	Matches   map[string][]assessment.VentureMatch   `json:"matches"`
	Ventures  []assessment.VentureProfile            `json:"ventures"`
}

// FileStore is a MemoryStore that writes a JSON snapshot after every change.
// It suits single-process demos; use SQLite for anything shared.
type FileStore struct {
	*MemoryStore
	path           string
	mu             sync.Mutex
	lastPersistErr string
}

func NewFileStore(path string, cfg Config) (*FileStore, error) {
	fs := &FileStore{MemoryStore: NewMemoryStore(cfg), path: path}
	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return fs, nil
}

func (f *FileStore) snapshot() fileState {
	m := f.MemoryStore
	m.mu.Lock()
	defer m.mu.Unlock()

	state := fileState{
		Sessions:  map[string]assessment.Session{},
		Responses: map[string][]assessment.Response{},
		Results:   map[string]assessment.AssessmentResult{},
		Matches:   map[string][]assessment.VentureMatch{},
	}
	for k, v := range m.sessions {
		state.Sessions[k] = *v
	}
	for k, byQuestion := range m.responses {
		for _, r := range byQuestion {
			state.Responses[k] = append(state.Responses[k], r)
		}
	}
	for k, v := range m.results {
		state.Results[k] = cloneResult(*v)
	}
	for k, v := range m.matches {
		state.Matches[k] = append([]assessment.VentureMatch{}, v...)
	}
	for _, id := range m.order {
		state.Ventures = append(state.Ventures, cloneVenture(*m.ventures[id]))
	}
	return state
}

func (f *FileStore) apply(state fileState) {
	m := f.MemoryStore
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range state.Sessions {
		cp := v
		m.sessions[k] = &cp
	}
	for k, rs := range state.Responses {
		byQuestion := map[string]assessment.Response{}
		for _, r := range rs {
			byQuestion[r.QuestionID] = r
		}
		m.responses[k] = byQuestion
	}
	for k, v := range state.Results {
		cp := cloneResult(v)
		m.results[k] = &cp
		m.bySession[v.SessionID] = k
	}
	for k, v := range state.Matches {
		m.matches[k] = append([]assessment.VentureMatch{}, v...)
	}
	for _, v := range state.Ventures {
		cp := cloneVenture(v)
		m.ventures[v.ID] = &cp
		m.order = append(m.order, v.ID)
	}
}

func (f *FileStore) persist() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := json.MarshalIndent(f.snapshot(), "", "  ")
	if err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.lastPersistErr = err.Error()
		return err
	}
	f.lastPersistErr = ""
	return nil
}

func (f *FileStore) load() error {
	blob, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(blob, &state); err != nil {
		return err
	}
	f.apply(state)
	return nil
}

func (f *FileStore) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastPersistErr != "" {
		return fmt.Errorf("last snapshot failed: %s", f.lastPersistErr)
	}
	return nil
}

func (f *FileStore) CreateSession(ctx context.Context, sess assessment.Session) (assessment.Session, error) {
	out, err := f.MemoryStore.CreateSession(ctx, sess)
	if err != nil {
		return out, err
	}
	return out, f.persist()
}

func (f *FileStore) MarkStarted(ctx context.Context, id string) error {
	if err := f.MemoryStore.MarkStarted(ctx, id); err != nil {
		return err
	}
	return f.persist()
}

func (f *FileStore) MarkCompleted(ctx context.Context, id string) (bool, error) {
	done, err := f.MemoryStore.MarkCompleted(ctx, id)
	if err != nil || !done {
		return done, err
	}
	return true, f.persist()
}

func (f *FileStore) PutResponses(ctx context.Context, sessionID string, rs []assessment.Response) error {
	if err := f.MemoryStore.PutResponses(ctx, sessionID, rs); err != nil {
		return err
	}
	return f.persist()
}

func (f *FileStore) UpsertBySession(ctx context.Context, sessionID string, result assessment.AssessmentResult) (assessment.AssessmentResult, bool, error) {
	out, created, err := f.MemoryStore.UpsertBySession(ctx, sessionID, result)
	if err != nil || !created {
		return out, created, err
	}
	return out, created, f.persist()
}

func (f *FileStore) ReplaceAllForResult(ctx context.Context, resultID string, matches []assessment.VentureMatch) error {
	if err := f.MemoryStore.ReplaceAllForResult(ctx, resultID, matches); err != nil {
		return err
	}
	return f.persist()
}

func (f *FileStore) UpsertVentureProfile(ctx context.Context, v assessment.VentureProfile) error {
	if err := f.MemoryStore.UpsertVentureProfile(ctx, v); err != nil {
		return err
	}
	return f.persist()
}
