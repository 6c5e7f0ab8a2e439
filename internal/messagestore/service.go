package messagestore

import (
	"context"

	"gepetobot/internal/messagestore/models"

	"github.com/sirupsen/logrus"
)

// Service wraps a Store with debug logging. It satisfies Store itself so
// callers are wired against the same contract as the backends.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
	}
}

func (s *Service) Insert(ctx context.Context, conversationID, role, content string, source models.ContentSource) error {
	logrus.Debugf("storing %s message for conversation %s", role, conversationID)
	return s.store.Insert(ctx, conversationID, role, content, source)
}

func (s *Service) History(ctx context.Context, conversationID string) ([]models.HistoryItem, error) {
	history, err := s.store.History(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("loaded %d history messages for conversation %s", len(history), conversationID)
	return history, nil
}

func (s *Service) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	deleted, err := s.store.DeleteAll(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	logrus.Infof("deleted %d messages for conversation %s", deleted, conversationID)
	return deleted, nil
}
