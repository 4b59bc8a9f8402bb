package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hungpv1995/community-board/internal/auth"
	"github.com/hungpv1995/community-board/internal/models"
	"github.com/hungpv1995/community-board/internal/notify"
)

type CommentStore interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// CommentHandler serves comments. Comment changes alter the post's
// comment_count, so it shares the post handler's cache and index upkeep.
type CommentHandler struct {
	repo  CommentStore
	posts *PostHandler
}

func NewCommentHandler(repo CommentStore, posts *PostHandler) *CommentHandler {
	return &CommentHandler{repo: repo, posts: posts}
}

// ListComments handles GET /posts/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	if _, err := h.posts.repo.GetPostByID(r.Context(), postID); err != nil {
		respondRepoError(w, err, "get post")
		return
	}

	comments, err := h.repo.ListComments(r.Context(), postID)
	if err != nil {
		respondRepoError(w, err, "list comments")
		return
	}
	respondSuccess(w, http.StatusOK, "", comments, map[string]int{"total": len(comments)})
}

// CreateComment handles POST /posts/{id}/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return
	}

	var req models.CreateCommentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := validateComment(req.Content); !ok {
		respondError(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	author := claims.Username
	if author == "" {
		author = strings.TrimSpace(req.Author)
	}
	comment := &models.Comment{
		PostID:   mux.Vars(r)["id"],
		Author:   author,
		AuthorID: claims.UserID(),
		Content:  strings.TrimSpace(req.Content),
	}
	if err := h.repo.CreateComment(r.Context(), comment); err != nil {
		respondRepoError(w, err, "create comment")
		return
	}

	h.posts.invalidate(r.Context(), comment.PostID)
	h.posts.notifyOwner(comment.PostID, notify.KindComment, claims)

	respondSuccess(w, http.StatusCreated, "Comment created successfully", comment, nil)
}

// DeleteComment handles DELETE /comments/{id}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return
	}
	id := mux.Vars(r)["id"]

	comment, err := h.repo.GetComment(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get comment")
		return
	}
	if comment.AuthorID == "" || comment.AuthorID != claims.UserID() {
		respondError(w, http.StatusForbidden, "You can only delete your own comments", nil)
		return
	}

	if err := h.repo.DeleteComment(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete comment")
		return
	}
	h.posts.invalidate(r.Context(), comment.PostID)

	respondSuccess(w, http.StatusOK, "Comment deleted successfully", nil, nil)
}
