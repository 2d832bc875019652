package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
)

const (
	esTimeout         = 3 * time.Second
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// DirectoryEntry is the public profile kept in the search index. It never
// carries credentials.
type DirectoryEntry struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newDirectoryEntry(u *entity.User) DirectoryEntry {
	return DirectoryEntry{
		ID:        u.ID,
		Email:     u.Email,
		UserName:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// DirectoryService mirrors registered users into Elasticsearch and searches them.
// A nil client turns every call into a no-op.
type DirectoryService struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewDirectoryService(es *elasticsearch.Client, index string, logger *logrus.Logger) *DirectoryService {
	return &DirectoryService{ES: es, Index: index, Logger: logger}
}

func (d *DirectoryService) enabled() bool { return d != nil && d.ES != nil && d.Index != "" }

// UserRegistered indexes the new user's public profile.
func (d *DirectoryService) UserRegistered(ctx context.Context, u *entity.User) error {
	if !d.enabled() {
		return nil
	}
	b, err := json.Marshal(newDirectoryEntry(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: d.Index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	res, err := req.Do(c, d.ES)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	if d.Logger != nil {
		d.Logger.WithField("user_id", u.ID).Debug("user indexed")
	}
	return nil
}

// Search runs a multi_match query over email, user name and names.
func (d *DirectoryService) Search(ctx context.Context, q string, size int) ([]DirectoryEntry, error) {
	if !d.enabled() {
		return []DirectoryEntry{}, nil
	}
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "userName^2", "firstName", "lastName"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()

	res, err := d.ES.Search(
		d.ES.Search.WithContext(c),
		d.ES.Search.WithIndex(d.Index),
		d.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, errors.New("es search: " + res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source DirectoryEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode es search: %w", err)
	}

	out := make([]DirectoryEntry, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
