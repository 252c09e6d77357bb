package service

import (
	"encoding/json"
	"log"

	"devsocial.app/backend/internal/entity"
	"github.com/meilisearch/meilisearch-go"
)

const usersIndex = "users"

// SearchService maintains the Meilisearch user index consumed by the
// member directory search.
type SearchService interface {
	IndexUser(user *entity.User) error
	DeleteUser(id string) error
	SearchUsers(query string, limit int64) ([]UserDocument, error)
}

type UserDocument struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Level       int    `json:"level"`
}

type searchService struct {
	client meilisearch.ServiceManager
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{client: client}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	sortableAttrs := []string{"level"}
	if _, err := s.client.Index(usersIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update users sortable attributes: %v", err)
	}

	searchableAttrs := []string{"username", "display_name"}
	if _, err := s.client.Index(usersIndex).UpdateSearchableAttributes(&searchableAttrs); err != nil {
		log.Printf("Failed to update users searchable attributes: %v", err)
	}
}

func (s *searchService) IndexUser(user *entity.User) error {
	doc := UserDocument{
		ID:       user.ID.String(),
		Username: user.Username,
		Level:    user.Level,
	}
	if user.Profile != nil {
		doc.DisplayName = user.Profile.DisplayName
	}
	if user.AvatarURL != nil {
		doc.AvatarURL = *user.AvatarURL
	}

	_, err := s.client.Index(usersIndex).AddDocuments([]UserDocument{doc}, strPtr("id"))
	return err
}

func strPtr(s string) *string {
	return &s
}

func (s *searchService) DeleteUser(id string) error {
	_, err := s.client.Index(usersIndex).DeleteDocument(id)
	return err
}

func (s *searchService) SearchUsers(query string, limit int64) ([]UserDocument, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	res, err := s.client.Index(usersIndex).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(res.Hits)
	if err != nil {
		return nil, err
	}

	docs := make([]UserDocument, 0, limit)
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}

	return docs, nil
}
