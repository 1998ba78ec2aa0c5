package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/daybreak/internal/handler"
	"github.com/dukerupert/daybreak/internal/middleware"
	"github.com/dukerupert/daybreak/internal/source"
	"github.com/dukerupert/daybreak/internal/store"
	ws "github.com/dukerupert/daybreak/internal/websocket"
)

// Options configures optional parts of the server.
type Options struct {
	// Uploader stores images posted to /api/uploads. Nil disables the route.
	Uploader source.Uploader
	// UploadDir is served under /uploads/ when set.
	UploadDir string
	// SignInLimit caps sign-in attempts per IP per minute.
	SignInLimit int
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	completionH  *handler.CompletionHandler
	devotionalH  *handler.DevotionalHandler
	groupH       *handler.GroupHandler
	postH        *handler.PostHandler
	streakH      *handler.StreakHandler
	uploadH      *handler.UploadHandler
	sessionStore *store.SessionStore
	groupStore   *store.GroupStore
	rateLimiter  *middleware.RateLimiter
	opts         Options
	logger       *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	groupStore := store.NewGroupStore(db)
	sessionStore := store.NewSessionStore(db)
	completionStore := store.NewCompletionStore(db)
	devotionalStore := store.NewDevotionalStore(db)
	postStore := store.NewPostStore(db)
	streakStore := store.NewStreakStore(db)

	if opts.SignInLimit <= 0 {
		opts.SignInLimit = 10
	}

	var uploadH *handler.UploadHandler
	if opts.Uploader != nil {
		uploadH = handler.NewUploadHandler(opts.Uploader, logger.With("component", "upload"))
	}

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, groupStore, sessionStore, logger.With("component", "auth")),
		completionH:  handler.NewCompletionHandler(completionStore, groupStore, hub, logger.With("component", "completion")),
		devotionalH:  handler.NewDevotionalHandler(devotionalStore, hub, logger.With("component", "devotional")),
		groupH:       handler.NewGroupHandler(groupStore, logger.With("component", "group")),
		postH:        handler.NewPostHandler(postStore, groupStore, hub, logger.With("component", "post")),
		streakH:      handler.NewStreakHandler(streakStore, hub, logger.With("component", "streak")),
		uploadH:      uploadH,
		sessionStore: sessionStore,
		groupStore:   groupStore,
		rateLimiter:  middleware.NewRateLimiter(),
		opts:         opts,
		logger:       logger,
	}
}

// Hub returns the realtime hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) isMember(userID, groupID int64) (bool, error) {
	m, err := s.groupStore.GetMember(groupID, userID)
	return m != nil, err
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/sign-in", s.rateLimitedHandler(s.authH.SignIn))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	if s.opts.UploadDir != "" {
		outerMux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.opts.UploadDir))))
	}

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "clients": s.hub.ClientCount()})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.opts.SignInLimit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session and profile
	mux.HandleFunc("POST /api/auth/sign-out", s.authH.SignOut)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("GET /api/profiles/{id}", s.authH.Profile)

	// Completions
	mux.HandleFunc("GET /api/completions", s.completionH.Get)
	mux.HandleFunc("PUT /api/completions", s.completionH.Upsert)
	mux.HandleFunc("GET /api/groups/{group_id}/completions", s.completionH.ListGroup)

	// Devotional content
	mux.HandleFunc("GET /api/devotionals/{date}", s.devotionalH.Get)
	mux.HandleFunc("PUT /api/devotionals", s.devotionalH.Publish)

	// Groups
	mux.HandleFunc("GET /api/groups/{group_id}/members", s.groupH.Members)

	// Posts, likes and comments
	mux.HandleFunc("GET /api/groups/{group_id}/posts", s.postH.ListGroup)
	mux.HandleFunc("POST /api/posts", s.postH.Create)
	mux.HandleFunc("GET /api/likes", s.postH.Likes)
	mux.HandleFunc("PUT /api/posts/{id}/like", s.postH.SetLike)
	mux.HandleFunc("GET /api/comments/counts", s.postH.CommentCounts)
	mux.HandleFunc("GET /api/posts/{id}/comments", s.postH.Comments)
	mux.HandleFunc("POST /api/posts/{id}/comments", s.postH.AddComment)

	// Streaks
	mux.HandleFunc("GET /api/streaks/{user_id}", s.streakH.Get)
	mux.HandleFunc("PUT /api/streaks", s.streakH.Save)

	if s.uploadH != nil {
		mux.HandleFunc("POST /api/uploads", s.uploadH.Upload)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.isMember, s.logger.With("component", "websocket")))
}
