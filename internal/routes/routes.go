package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hungpv1995/community-board/internal/auth"
	"github.com/hungpv1995/community-board/internal/handlers"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Posts    *handlers.PostHandler
	Comments *handlers.CommentHandler
	Users    *handlers.UserHandler
	Health   map[string]handlers.Pinger
}

// NewRouter mounts the board API under /api/v1.
func NewRouter(h Handlers, verifier auth.Verifier) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	requireAuth := auth.RequireAuth(verifier)
	optionalAuth := auth.OptionalAuth(verifier)

	CreatePostRoutes(api, h, requireAuth, optionalAuth)
	CreateUserRoutes(api, h.Users, requireAuth, optionalAuth)

	api.HandleFunc("/categories", handlers.ListCategories()).Methods("GET")
	api.HandleFunc("/health", handlers.Health(h.Health)).Methods("GET")

	return router
}

func CreatePostRoutes(router *mux.Router, h Handlers, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	router.HandleFunc("/posts", h.Posts.ListPosts).Methods("GET")
	router.HandleFunc("/posts/search", h.Posts.SearchPosts).Methods("GET")
	router.Handle("/posts", requireAuth(http.HandlerFunc(h.Posts.CreatePost))).Methods("POST")
	router.Handle("/posts/{id}", optionalAuth(http.HandlerFunc(h.Posts.GetPost))).Methods("GET")
	router.Handle("/posts/{id}", requireAuth(http.HandlerFunc(h.Posts.UpdatePost))).Methods("PATCH", "PUT")
	router.Handle("/posts/{id}", requireAuth(http.HandlerFunc(h.Posts.DeletePost))).Methods("DELETE")
	router.Handle("/posts/{id}/like", requireAuth(http.HandlerFunc(h.Posts.ToggleLike))).Methods("POST")
	router.Handle("/posts/{id}/like/status", requireAuth(http.HandlerFunc(h.Posts.LikeStatus))).Methods("GET")

	router.HandleFunc("/posts/{id}/comments", h.Comments.ListComments).Methods("GET")
	router.Handle("/posts/{id}/comments", requireAuth(http.HandlerFunc(h.Comments.CreateComment))).Methods("POST")
	router.Handle("/comments/{id}", requireAuth(http.HandlerFunc(h.Comments.DeleteComment))).Methods("DELETE")
}

func CreateUserRoutes(router *mux.Router, users *handlers.UserHandler, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	router.HandleFunc("/users/register", users.Register).Methods("POST")
	router.HandleFunc("/users/login", users.Login).Methods("POST")
	router.Handle("/users/me", requireAuth(http.HandlerFunc(users.Me))).Methods("GET")
	router.Handle("/users/{id}", optionalAuth(http.HandlerFunc(users.GetUser))).Methods("GET")
	router.Handle("/users/{id}", requireAuth(http.HandlerFunc(users.UpdateUser))).Methods("PUT")
}
