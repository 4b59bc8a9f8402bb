package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hungpv1995/community-board/internal/auth"
	"github.com/hungpv1995/community-board/internal/models"
	"github.com/hungpv1995/community-board/internal/repository"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error)
}

type TokenIssuer interface {
	Issue(userID, username, email string) (*auth.TokenSet, error)
}

// UserHandler serves signup, login and profile routes. With a nil issuer the
// board relies on a hosted identity provider and local signup and login are
// disabled.
type UserHandler struct {
	repo   UserStore
	issuer TokenIssuer
}

func NewUserHandler(repo UserStore, issuer TokenIssuer) *UserHandler {
	return &UserHandler{repo: repo, issuer: issuer}
}

// Register handles POST /users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		respondError(w, http.StatusNotImplemented, "Sign-up is handled by the identity provider", nil)
		return
	}

	var req models.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := validateRegister(&req); !ok {
		respondError(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to register user", nil)
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			field := strings.SplitN(err.Error(), ":", 2)[0]
			respondError(w, http.StatusConflict, "User already exists", map[string]string{field: "already taken"})
			return
		}
		respondRepoError(w, err, "register user")
		return
	}
	log.Printf("User registered: %s", user.Username)

	h.respondWithTokens(w, http.StatusCreated, "User registered successfully", user)
}

// Login handles POST /users/login. The username field accepts a username or
// an email address.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		respondError(w, http.StatusNotImplemented, "Sign-in is handled by the identity provider", nil)
		return
	}

	var req models.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required", nil)
		return
	}

	user, err := h.repo.FindByLogin(r.Context(), req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondRepoError(w, err, "log in")
		return
	}
	if user == nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	h.respondWithTokens(w, http.StatusOK, "Login successful", user)
}

func (h *UserHandler) respondWithTokens(w http.ResponseWriter, status int, message string, user *models.User) {
	tokens, err := h.issuer.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		log.Printf("Failed to issue tokens: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to issue tokens", nil)
		return
	}
	respondSuccess(w, status, message, models.AuthResponse{
		User: *user,
		Tokens: models.Tokens{
			AccessToken:  tokens.AccessToken,
			IDToken:      tokens.IDToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    int(tokens.ExpiresIn.Seconds()),
		},
	}, nil)
}

// Me handles GET /users/me. Principals known only to the identity provider
// are described from their token.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return
	}

	user, err := h.repo.GetUserByID(r.Context(), claims.UserID())
	if errors.Is(err, repository.ErrNotFound) {
		user = &models.User{ID: claims.UserID(), Username: claims.Username, Email: claims.Email, IsActive: true}
	} else if err != nil {
		respondRepoError(w, err, "get user")
		return
	}
	respondSuccess(w, http.StatusOK, "", user, nil)
}

// GetUser handles GET /users/{id}. Email and phone are only shown to the user
// themselves.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user, err := h.repo.GetUserByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get user")
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); !ok || claims.UserID() != user.ID {
		user.Email = ""
		user.Phone = ""
	}
	respondSuccess(w, http.StatusOK, "", user, nil)
}

// UpdateUser handles PUT /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization token is required", nil)
		return
	}
	id := mux.Vars(r)["id"]
	if id != claims.UserID() {
		respondError(w, http.StatusForbidden, "You can only update your own profile", nil)
		return
	}

	var req models.UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := validateUserUpdate(&req); !ok {
		respondError(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	user, err := h.repo.UpdateUser(r.Context(), id, &req)
	if err != nil {
		respondRepoError(w, err, "update user")
		return
	}
	respondSuccess(w, http.StatusOK, "User updated successfully", user, nil)
}
