package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hungpv1995/community-board/internal/listing"
	"github.com/hungpv1995/community-board/internal/models"
	"github.com/hungpv1995/community-board/internal/session"
)

// DecodePosts reads a post list from a {"posts": [...]} or {"data": [...]}
// body. A missing or malformed envelope yields an empty list.
func DecodePosts(body []byte) []*models.Post {
	var env struct {
		Posts json.RawMessage `json:"posts"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return []*models.Post{}
	}
	for _, raw := range []json.RawMessage{env.Posts, env.Data} {
		if len(raw) == 0 {
			continue
		}
		var posts []*models.Post
		if err := json.Unmarshal(raw, &posts); err != nil {
			continue
		}
		return models.NormalizePosts(posts)
	}
	return []*models.Post{}
}

// ListParams are the list query parameters. Zero values are omitted.
type ListParams struct {
	Category string
	Search   string
	Sort     listing.SortKey
	Page     int
	PerPage  int
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Sort != listing.SortRecent {
		q.Set("sort", p.Sort.String())
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return q
}

type PostPage struct {
	Posts []*models.Post
	Meta  listing.PageMeta
}

type PostService struct {
	c *Client
}

func (s *PostService) ListPosts(ctx context.Context, params ListParams) (*PostPage, error) {
	raw, err := s.c.do(ctx, http.MethodGet, "/posts", params.values(), nil)
	if err != nil {
		return nil, err
	}
	page := &PostPage{Posts: DecodePosts(raw)}
	var env struct {
		Meta listing.PageMeta `json:"meta"`
	}
	if json.Unmarshal(raw, &env) == nil {
		page.Meta = env.Meta
	}
	return page, nil
}

// ListAll walks every page of the unfiltered list.
func (s *PostService) ListAll(ctx context.Context) ([]*models.Post, error) {
	all := []*models.Post{}
	for page := 1; ; page++ {
		res, err := s.ListPosts(ctx, ListParams{Page: page, PerPage: listing.MaxPerPage})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Posts...)
		if len(res.Posts) == 0 || page >= res.Meta.Pages {
			return all, nil
		}
	}
}

func (s *PostService) Search(ctx context.Context, query string) (*models.SearchResponse, error) {
	var res models.SearchResponse
	if _, err := s.c.call(ctx, http.MethodGet, "/posts/search", url.Values{"q": {query}}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if _, err := s.c.call(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, nil, &post); err != nil {
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (s *PostService) CreatePost(ctx context.Context, req *models.CreatePostRequest) (*models.Post, error) {
	var post models.Post
	if _, err := s.c.call(ctx, http.MethodPost, "/posts", nil, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id string, req *models.UpdatePostRequest) (*models.Post, error) {
	var post models.Post
	if _, err := s.c.call(ctx, http.MethodPatch, "/posts/"+url.PathEscape(id), nil, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *PostService) DeletePost(ctx context.Context, id string) error {
	_, err := s.c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil)
	return err
}

func (s *PostService) ToggleLike(ctx context.Context, id string) (*models.LikeResult, error) {
	var res models.LikeResult
	if _, err := s.c.call(ctx, http.MethodPost, "/posts/"+url.PathEscape(id)+"/like", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *PostService) LikeStatus(ctx context.Context, id string) (bool, error) {
	var res struct {
		IsLiked bool `json:"is_liked"`
	}
	if _, err := s.c.call(ctx, http.MethodGet, "/posts/"+url.PathEscape(id)+"/like/status", nil, nil, &res); err != nil {
		return false, err
	}
	return res.IsLiked, nil
}

func (s *PostService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if _, err := s.c.call(ctx, http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

type CommentService struct {
	c *Client
}

func (s *CommentService) CreateComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	var comment models.Comment
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if _, err := s.c.call(ctx, http.MethodPost, path, nil, models.CreateCommentRequest{Content: content}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if _, err := s.c.call(ctx, http.MethodGet, path, nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, id string) error {
	_, err := s.c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil)
	return err
}

type UserService struct {
	c *Client
}

// Register signs up and stores the new session.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/users/register", req)
}

// Login signs in with a username or email and stores the session.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/users/login", models.LoginRequest{Username: username, Password: password})
}

func (s *UserService) authenticate(ctx context.Context, path string, body interface{}) (*models.AuthResponse, error) {
	var res models.AuthResponse
	if _, err := s.c.call(ctx, http.MethodPost, path, nil, body, &res); err != nil {
		return nil, err
	}
	if s.c.session != nil {
		err := s.c.session.Save(ctx, session.Session{
			Username:     res.User.Username,
			Email:        res.User.Email,
			AccessToken:  res.Tokens.AccessToken,
			IDToken:      res.Tokens.IDToken,
			RefreshToken: res.Tokens.RefreshToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
	}
	return &res, nil
}

// Logout forgets the stored session.
func (s *UserService) Logout(ctx context.Context) error {
	if s.c.session == nil {
		return nil
	}
	return s.c.session.Clear(ctx)
}

// Get returns the public profile of a user. Email and phone are filled only
// for the signed-in user's own profile.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if _, err := s.c.call(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := s.c.call(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
