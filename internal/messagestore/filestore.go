package messagestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gepetobot/internal/messagestore/models"

	"github.com/google/uuid"
)

// FileStore keeps every message in a single JSON document on disk. It is
// the zero-dependency backend for small deployments; a mutex serializes
// access so concurrent handlers never interleave writes.
type FileStore struct {
	path      string
	retention time.Duration

	mu  sync.Mutex
	now func() time.Time
}

func NewFileStore(path string, retention time.Duration) *FileStore {
	return &FileStore{
		path:      path,
		retention: retention,
		now:       time.Now,
	}
}

func (s *FileStore) Insert(ctx context.Context, conversationID, role, content string, source models.ContentSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return storageErr("insert", conversationID, err)
	}

	records = append(records, models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Source:         source,
		CreatedAt:      s.now().UTC(),
	})

	if err := s.save(records); err != nil {
		return storageErr("insert", conversationID, err)
	}
	return nil
}

func (s *FileStore) History(ctx context.Context, conversationID string) ([]models.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, storageErr("history", conversationID, err)
	}

	var cutoff time.Time
	if s.retention > 0 {
		cutoff = s.now().UTC().Add(-s.retention)
	}

	var matched []models.Message
	for _, rec := range records {
		if rec.ConversationID != conversationID {
			continue
		}
		if s.retention > 0 && !rec.CreatedAt.After(cutoff) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	history := make([]models.HistoryItem, len(matched))
	for i, rec := range matched {
		history[i] = models.HistoryItem{Role: rec.Role, Content: rec.Content}
	}
	return history, nil
}

func (s *FileStore) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return 0, storageErr("delete_all", conversationID, err)
	}

	kept := records[:0]
	deleted := 0
	for _, rec := range records {
		if rec.ConversationID == conversationID {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}

	if deleted == 0 {
		return 0, nil
	}

	if err := s.save(kept); err != nil {
		return 0, storageErr("delete_all", conversationID, err)
	}
	return deleted, nil
}

func (s *FileStore) load() ([]models.Message, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []models.Message
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// save writes through a temp file and renames it over the store so a
// crash mid-write never leaves a truncated document.
func (s *FileStore) save(records []models.Message) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".gepeto-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
