package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/hungpv1995/community-board/internal/auth"
	"github.com/hungpv1995/community-board/internal/listing"
	"github.com/hungpv1995/community-board/internal/models"
	"github.com/hungpv1995/community-board/internal/notify"
)

// PostStore is the persistence used by the post handlers.
type PostStore interface {
	CreatePostWithTransaction(ctx context.Context, req *models.CreatePostRequest, authorID string) (*models.Post, error)
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, visibility string) ([]*models.Post, error)
	UpdatePost(ctx context.Context, id string, req *models.UpdatePostRequest) error
	DeletePost(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) (int, error)
	ToggleLike(ctx context.Context, postID, userID string) (*models.LikeResult, error)
	IsLiked(ctx context.Context, postID, userID string) (bool, error)
}

// PostCache is the read-through cache in front of PostStore.
type PostCache interface {
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	SetPost(ctx context.Context, post *models.Post, ttl time.Duration) error
	InvalidatePost(ctx context.Context, postID string) error
	ShouldCountView(ctx context.Context, postID, clientIP string, window time.Duration) (bool, error)
}

// PostIndex is the full-text index.
type PostIndex interface {
	IndexPost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, postID string) error
	SearchPosts(ctx context.Context, query string) ([]models.Post, int, error)
	GetRelatedPosts(ctx context.Context, post *models.Post) []models.Related
}

// PostHandler serves posts and likes. cache and index may be nil, in which
// case reads go straight to the store and search is unavailable.
type PostHandler struct {
	repo     PostStore
	cache    PostCache
	search   PostIndex
	notifier notify.Notifier

	postTTL    time.Duration
	viewWindow time.Duration
	trustProxy bool

	// async runs side work that must not delay the response
	async func(func())
}

func NewPostHandler(repo PostStore, cache PostCache, search PostIndex, notifier notify.Notifier, postTTL, viewWindow time.Duration) *PostHandler {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &PostHandler{
		repo:       repo,
		cache:      cache,
		search:     search,
		notifier:   notifier,
		postTTL:    postTTL,
		viewWindow: viewWindow,
		async:      func(f func()) { go f() },
	}
}

// SetTrustProxy makes view counting key clients by X-Forwarded-For. Enable it
// only when a reverse proxy overwrites that header.
func (h *PostHandler) SetTrustProxy(trust bool) {
	h.trustProxy = trust
}

// ListPosts handles GET /posts?category=&search=&sort=&page=&per_page=
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	posts, err := h.repo.ListPosts(r.Context(), models.VisibilityPublic)
	if err != nil {
		respondRepoError(w, err, "list posts")
		return
	}
	published := posts[:0]
	for _, p := range posts {
		if p.Status == models.StatusPublished {
			published = append(published, p)
		}
	}

	ctrl := listing.NewController()
	if err := ctrl.Load(models.NormalizePosts(published)); err != nil {
		respondRepoError(w, err, "list posts")
		return
	}
	// CategoryFromQuery only returns members of the fixed set
	_ = ctrl.SetCategory(listing.CategoryFromQuery(q.Get("category")))

	term := q.Get("search")
	if term == "" {
		term = q.Get("q")
	}
	ctrl.SetSearchTerm(term)

	key, err := listing.ParseSortKey(q.Get("sort"))
	if err != nil {
		log.Printf("Unknown sort %q, using %s", q.Get("sort"), key)
	}
	_ = ctrl.SetSortKey(key)

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	visible, meta := listing.Paginate(ctrl.VisiblePosts(), page, perPage)

	respondSuccess(w, http.StatusOK, "", visible, meta)
}

// SearchPosts handles GET /posts/search?q=<query>
func (h *PostHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "Query parameter is required", nil)
		return
	}
	if h.search == nil {
		respondError(w, http.StatusServiceUnavailable, "Search is not available", nil)
		return
	}

	posts, total, err := h.search.SearchPosts(r.Context(), query)
	if err != nil {
		log.Printf("Failed to search posts: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to search posts", nil)
		return
	}

	respondSuccess(w, http.StatusOK, "", models.SearchResponse{Posts: posts, Total: total}, nil)
}

// GetPost handles GET /posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	post, fromCache := h.cachedPost(ctx, id)
	if post == nil {
		var err error
		post, err = h.repo.GetPostByID(ctx, id)
		if err != nil {
			respondRepoError(w, err, "get post")
			return
		}
	}

	if !h.canView(r, post) {
		respondError(w, http.StatusNotFound, "Resource not found", nil)
		return
	}

	counted := h.countView(ctx, post, clientIP(r, h.trustProxy))
	if h.cache != nil && (!fromCache || counted) {
		if err := h.cache.SetPost(ctx, post, h.postTTL); err != nil {
			log.Printf("Failed to cache post: %v", err)
		}
	}

	post.RelatedPosts = []models.Related{}
	if h.search != nil {
		post.RelatedPosts = h.search.GetRelatedPosts(ctx, post)
	}

	respondSuccess(w, http.StatusOK, "", post, nil)
}

func (h *PostHandler) cachedPost(ctx context.Context, id string) (*models.Post, bool) {
	if h.cache == nil {
		return nil, false
	}
	post, err := h.cache.GetPost(ctx, id)
	if err != nil {
		log.Printf("Cache error: %v", err)
		return nil, false
	}
	if post == nil {
		log.Printf("Cache miss for post %s", id)
		return nil, false
	}
	log.Printf("Cache hit for post %s", id)
	return post, true
}

func (h *PostHandler) canView(r *http.Request, post *models.Post) bool {
	if post.Visibility != models.VisibilityPrivate && post.Status == models.StatusPublished {
		return true
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	return ok && post.AuthorID != "" && claims.UserID() == post.AuthorID
}

// countView increments the view count at most once per client within the view
// window. Without a cache every request counts.
func (h *PostHandler) countView(ctx context.Context, post *models.Post, ip string) bool {
	if h.cache != nil {
		ok, err := h.cache.ShouldCountView(ctx, post.ID, ip, h.viewWindow)
		if err != nil {
			log.Printf("Failed to check view window: %v", err)
			return false
		}
		if !ok {
			return false
		}
	}
	views, err := h.repo.IncrementViewCount(ctx, post.ID)
	if err != nil {
		log.Printf("Failed to increment view count: %v", err)
		return false
	}
	post.ViewCount = views
	return true
}

// CreatePost handles POST /posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return
	}

	var req models.CreatePostRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := validatePost(&req); !ok {
		respondError(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	if claims.Username != "" {
		req.Author = claims.Username
	}

	post, err := h.repo.CreatePostWithTransaction(r.Context(), &req, claims.UserID())
	if err != nil {
		respondRepoError(w, err, "create post")
		return
	}

	h.reindex(post.ID)

	respondSuccess(w, http.StatusCreated, "Post created successfully", post, nil)
}

// UpdatePost handles PATCH and PUT /posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.ownedPost(w, r, id); !ok {
		return
	}

	var req models.UpdatePostRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := validatePostUpdate(&req); !ok {
		respondError(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	if err := h.repo.UpdatePost(r.Context(), id, &req); err != nil {
		respondRepoError(w, err, "update post")
		return
	}
	h.invalidate(r.Context(), id)

	post, err := h.repo.GetPostByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get post")
		return
	}
	h.reindex(id)

	respondSuccess(w, http.StatusOK, "Post updated successfully", post, nil)
}

// DeletePost handles DELETE /posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.ownedPost(w, r, id); !ok {
		return
	}

	if err := h.repo.DeletePost(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete post")
		return
	}
	h.invalidate(r.Context(), id)

	if h.search != nil {
		h.async(func() {
			if err := h.search.DeletePost(context.Background(), id); err != nil {
				log.Printf("Failed to remove post from Elasticsearch: %v", err)
			}
		})
	}

	respondSuccess(w, http.StatusOK, "Post deleted successfully", nil, nil)
}

// ToggleLike handles POST /posts/{id}/like
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return
	}
	id := mux.Vars(r)["id"]

	result, err := h.repo.ToggleLike(r.Context(), id, claims.UserID())
	if err != nil {
		respondRepoError(w, err, "toggle like")
		return
	}
	h.invalidate(r.Context(), id)
	h.reindex(id)

	if result.IsLiked {
		h.notifyOwner(id, notify.KindLike, claims)
	}

	message := "Like added"
	if !result.IsLiked {
		message = "Like removed"
	}
	respondSuccess(w, http.StatusOK, message, result, nil)
}

// LikeStatus handles GET /posts/{id}/like/status
func (h *PostHandler) LikeStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return
	}

	liked, err := h.repo.IsLiked(r.Context(), mux.Vars(r)["id"], claims.UserID())
	if err != nil {
		respondRepoError(w, err, "get like status")
		return
	}
	respondSuccess(w, http.StatusOK, "", map[string]bool{"is_liked": liked}, nil)
}

// ownedPost loads the post and checks the caller wrote it. It writes the error
// response itself when it returns false.
func (h *PostHandler) ownedPost(w http.ResponseWriter, r *http.Request, id string) (*models.Post, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return nil, false
	}
	post, err := h.repo.GetPostByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get post")
		return nil, false
	}
	if post.AuthorID == "" || post.AuthorID != claims.UserID() {
		respondError(w, http.StatusForbidden, "You can only modify your own posts", nil)
		return nil, false
	}
	return post, true
}

func (h *PostHandler) invalidate(ctx context.Context, id string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidatePost(ctx, id); err != nil {
		log.Printf("Failed to invalidate cache: %v", err)
		return
	}
	log.Printf("Cache invalidated for post %s", id)
}

// reindex re-reads the post and writes it to the search index in the background.
func (h *PostHandler) reindex(id string) {
	if h.search == nil {
		return
	}
	h.async(func() {
		ctx := context.Background()
		post, err := h.repo.GetPostByID(ctx, id)
		if err != nil {
			log.Printf("Failed to get post for indexing: %v", err)
			return
		}
		if err := h.search.IndexPost(ctx, post); err != nil {
			log.Printf("Failed to index post in Elasticsearch: %v", err)
		}
	})
}

func (h *PostHandler) notifyOwner(postID, kind string, actor *auth.Claims) {
	h.async(func() {
		ctx := context.Background()
		post, err := h.repo.GetPostByID(ctx, postID)
		if err != nil {
			log.Printf("Failed to get post for notification: %v", err)
			return
		}
		if post.AuthorID == "" || post.AuthorID == actor.UserID() {
			return
		}
		err = h.notifier.Notify(ctx, notify.Notification{
			Kind:        kind,
			RecipientID: post.AuthorID,
			ActorName:   actor.Username,
			PostID:      post.ID,
			PostTitle:   post.Title,
		})
		if err != nil {
			log.Printf("Failed to send %s notification: %v", kind, err)
		}
	})
}
