package service

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"

	"github.com/johannesrosenbaum/chatilo-server/internal/model"
)

const messageIndex = "messages"

type SearchHit struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	CreatedAt int64  `json:"created_at"`
}

type SearchService interface {
	IndexMessage(msg *model.Message) error
	DeleteMessage(id string) error
	Search(query, roomID string, limit int) ([]SearchHit, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	filterable := []any{"room_id"}
	if _, err := s.client.Index(messageIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("Failed to update messages filterable attributes: %v", err)
	}

	sortable := []string{"created_at"}
	if _, err := s.client.Index(messageIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update messages sortable attributes: %v", err)
	}
}

func (s *searchService) IndexMessage(msg *model.Message) error {
	doc := SearchHit{
		ID:        msg.ID.String(),
		RoomID:    msg.RoomID.String(),
		Content:   s.sanitizer.Sanitize(msg.Content),
		Sender:    msg.Sender.Username,
		CreatedAt: msg.CreatedAt.Unix(),
	}
	_, err := s.client.Index(messageIndex).AddDocuments([]SearchHit{doc}, nil)
	return err
}

func (s *searchService) DeleteMessage(id string) error {
	_, err := s.client.Index(messageIndex).DeleteDocument(id, nil)
	return err
}

func (s *searchService) Search(query, roomID string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	req := &meilisearch.SearchRequest{
		Limit: int64(limit),
		Sort:  []string{"created_at:desc"},
	}
	if roomID != "" {
		req.Filter = fmt.Sprintf("room_id = %q", roomID)
	}

	res, err := s.client.Index(messageIndex).Search(query, req)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, raw := range res.Hits {
		hits = append(hits, SearchHit{
			ID:        decodeString(raw, "id"),
			RoomID:    decodeString(raw, "room_id"),
			Content:   decodeString(raw, "content"),
			Sender:    decodeString(raw, "sender"),
			CreatedAt: decodeInt64(raw, "created_at"),
		})
	}
	return hits, nil
}

func decodeString(hit meilisearch.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeInt64(hit meilisearch.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}
