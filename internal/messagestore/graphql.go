package messagestore

import (
	"context"
	"time"

	"gepetobot/internal/messagestore/models"

	"github.com/machinebox/graphql"
)

const (
	insertMessageMutation = `
		mutation ($data: MessageInsertInput!) {
			insertOneMessage(data: $data) {
				_id
			}
		}
	`

	messagesQuery = `
		query ($query: MessageQueryInput!) {
			messages(query: $query, sortBy: CREATED_AT_ASC) {
				role
				content
			}
		}
	`

	deleteMessagesMutation = `
		mutation ($query: MessageQueryInput!) {
			deleteManyMessages(query: $query) {
				deletedCount
			}
		}
	`
)

// GraphQLStore talks to a managed document store fronted by a GraphQL
// API (MongoDB Atlas / Realm style schema). Authentication is a static
// apiKey header on every request.
type GraphQLStore struct {
	client    *graphql.Client
	apiKey    string
	retention time.Duration
	now       func() time.Time
}

func NewGraphQLStore(url, apiKey string, retention time.Duration) *GraphQLStore {
	return &GraphQLStore{
		client:    graphql.NewClient(url),
		apiKey:    apiKey,
		retention: retention,
		now:       time.Now,
	}
}

func (s *GraphQLStore) Insert(ctx context.Context, conversationID, role, content string, source models.ContentSource) error {
	req := s.newRequest(insertMessageMutation)
	req.Var("data", map[string]interface{}{
		"conversation_id": conversationID,
		"role":            role,
		"content":         content,
		"source":          string(source),
		"created_at":      s.now().UTC().Format(time.RFC3339),
	})

	var resp struct {
		InsertOneMessage struct {
			ID string `json:"_id"`
		} `json:"insertOneMessage"`
	}
	if err := s.client.Run(ctx, req, &resp); err != nil {
		return storageErr("insert", conversationID, err)
	}
	return nil
}

func (s *GraphQLStore) History(ctx context.Context, conversationID string) ([]models.HistoryItem, error) {
	query := map[string]interface{}{
		"conversation_id": conversationID,
	}
	if s.retention > 0 {
		query["created_at_gt"] = s.now().UTC().Add(-s.retention).Format(time.RFC3339)
	}

	req := s.newRequest(messagesQuery)
	req.Var("query", query)

	var resp struct {
		Messages []models.HistoryItem `json:"messages"`
	}
	if err := s.client.Run(ctx, req, &resp); err != nil {
		return nil, storageErr("history", conversationID, err)
	}
	return resp.Messages, nil
}

func (s *GraphQLStore) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	req := s.newRequest(deleteMessagesMutation)
	req.Var("query", map[string]interface{}{
		"conversation_id": conversationID,
	})

	var resp struct {
		DeleteManyMessages struct {
			DeletedCount int `json:"deletedCount"`
		} `json:"deleteManyMessages"`
	}
	if err := s.client.Run(ctx, req, &resp); err != nil {
		return 0, storageErr("delete_all", conversationID, err)
	}
	return resp.DeleteManyMessages.DeletedCount, nil
}

func (s *GraphQLStore) newRequest(query string) *graphql.Request {
	req := graphql.NewRequest(query)
	req.Header.Set("apiKey", s.apiKey)
	return req
}
