package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/hungpv1995/community-board/internal/models"
)

const relatedSize = 5

type ElasticSearch struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticSearch(client *elasticsearch.Client, index string) *ElasticSearch {
	if index == "" {
		index = "posts"
	}
	return &ElasticSearch{client: client, index: index}
}

// document is the indexed form of a post
type document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	LikeCount int    `json:"like_count"`
	CreatedAt string `json:"created_at,omitempty"`
}

type searchResult struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source document `json:"_source"`
			Score  float64  `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// CreateIndex creates the posts index with proper mapping
func (es *ElasticSearch) CreateIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"id": {"type": "keyword"},
				"title": {"type": "text"},
				"content": {"type": "text"},
				"author": {"type": "text"},
				"category": {"type": "keyword"},
				"like_count": {"type": "integer"},
				"created_at": {"type": "date"}
			}
		}
	}`

	req := esapi.IndicesCreateRequest{
		Index: es.index,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// IndexPost indexes a post in Elasticsearch
func (es *ElasticSearch) IndexPost(ctx context.Context, post *models.Post) error {
	doc := document{
		ID:        post.ID,
		Title:     post.Title,
		Content:   post.Content,
		Author:    post.Author,
		Category:  post.Category,
		LikeCount: post.LikeCount,
		CreatedAt: post.CreatedAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      es.index,
		DocumentID: post.ID,
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	log.Printf("Document indexed successfully: %s", post.ID)
	return nil
}

// DeletePost removes a post from the index. A missing document is not an error.
func (es *ElasticSearch) DeletePost(ctx context.Context, postID string) error {
	req := esapi.DeleteRequest{
		Index:      es.index,
		DocumentID: postID,
		Refresh:    "true",
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("error deleting document: %s", res.String())
	}
	return nil
}

// SearchPosts performs full-text search on title, content and author
func (es *ElasticSearch) SearchPosts(ctx context.Context, query string) ([]models.Post, int, error) {
	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content", "author"},
			},
		},
	}

	result, err := es.search(ctx, searchQuery, true)
	if err != nil {
		return nil, 0, err
	}

	posts := make([]models.Post, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		src := hit.Source
		posts = append(posts, models.Post{
			ID:        src.ID,
			Title:     src.Title,
			Content:   src.Content,
			Author:    src.Author,
			Category:  src.Category,
			LikeCount: src.LikeCount,
			CreatedAt: src.CreatedAt,
		})
	}

	return posts, result.Hits.Total.Value, nil
}

// GetRelatedPosts finds up to five other posts in the same category. Failures
// are logged and yield an empty list.
func (es *ElasticSearch) GetRelatedPosts(ctx context.Context, post *models.Post) []models.Related {
	if post.Category == "" {
		return []models.Related{}
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": map[string]interface{}{
					"term": map[string]interface{}{
						"category": post.Category,
					},
				},
				"must_not": map[string]interface{}{
					"term": map[string]interface{}{
						"id": post.ID,
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"like_count": "desc"},
		},
		"size": relatedSize,
	}

	result, err := es.search(ctx, searchQuery, false)
	if err != nil {
		log.Printf("Error searching related posts: %v", err)
		return []models.Related{}
	}

	related := make([]models.Related, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		related = append(related, models.Related{
			ID:       hit.Source.ID,
			Title:    hit.Source.Title,
			Category: hit.Source.Category,
		})
	}
	return related
}

func (es *ElasticSearch) search(ctx context.Context, query map[string]interface{}, trackTotal bool) (*searchResult, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(es.index),
		es.client.Search.WithBody(&buf),
	}
	if trackTotal {
		opts = append(opts, es.client.Search.WithTrackTotalHits(true))
	}

	res, err := es.client.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search error: %s %s", res.Status(), body)
	}

	var result searchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// Ping checks if Elasticsearch is reachable
func (es *ElasticSearch) Ping(ctx context.Context) error {
	res, err := es.client.Info(es.client.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return nil
}
