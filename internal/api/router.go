package api

import (
	"log"
	"net/http"

	"github.com/hazuki/ronlog/internal/auth"
	"github.com/hazuki/ronlog/internal/events"
	"github.com/hazuki/ronlog/internal/storage"
)

// Router holds the HTTP routes and dependencies
type Router struct {
	mux   *http.ServeMux
	store *storage.Store
	bus   *events.Bus
	wsHub *WebSocketHub
	auth  *auth.Service
}

// NewRouter creates a new HTTP router. The bus may be nil, in which case no
// live events are published or fed to websocket clients.
func NewRouter(store *storage.Store, bus *events.Bus, authService *auth.Service) *Router {
	r := &Router{
		mux:   http.NewServeMux(),
		store: store,
		bus:   bus,
		wsHub: NewWebSocketHub(),
		auth:  authService,
	}

	// Game routes
	r.mux.HandleFunc("POST /api/games", r.requireAuth(r.handleCreateGame))
	r.mux.HandleFunc("GET /api/games/{id}", r.handleGetGame)
	r.mux.HandleFunc("DELETE /api/games/{id}", r.requireAdmin(r.handleDeleteGame))

	// Player query routes
	r.mux.HandleFunc("GET /api/users/{id}/games", r.handleGetUserGames)
	r.mux.HandleFunc("GET /api/users/{id}/stats", r.handleGetUserStats)
	r.mux.HandleFunc("GET /api/stats/leaderboard", r.handleGetLeaderboard)

	// Export and repair routes (admin only)
	r.mux.HandleFunc("GET /api/export/scores.csv", r.requireAdmin(r.handleExportScores))
	r.mux.HandleFunc("GET /api/export/stats.csv", r.requireAdmin(r.handleExportStats))
	r.mux.HandleFunc("POST /api/admin/fix-stats", r.requireAdmin(r.handleFixStats))

	// Auth routes
	r.mux.HandleFunc("POST /api/auth/login", r.handleLogin)
	r.mux.HandleFunc("POST /api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("GET /api/auth/check", r.handleAuthCheck)
	r.mux.HandleFunc("POST /api/auth/change-password", r.requireAuth(r.handleChangePassword))

	// User management routes (admin only)
	r.mux.HandleFunc("GET /api/users", r.requireAdmin(r.handleListUsers))
	r.mux.HandleFunc("POST /api/users", r.requireAdmin(r.handleCreateUser))
	r.mux.HandleFunc("DELETE /api/users/{username}", r.requireAdmin(r.handleDeleteUser))
	r.mux.HandleFunc("POST /api/users/{id}/reset-password", r.requireAdmin(r.handleResetUserPassword))

	// WebSocket endpoint
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// StartEventFeed starts the websocket hub and forwards bus events to it.
func (r *Router) StartEventFeed() {
	go r.wsHub.Run()

	if r.bus == nil {
		return
	}
	if _, err := r.bus.SubscribeGames(r.wsHub.Broadcast); err != nil {
		log.Printf("Error subscribing to game events: %v", err)
	}
}
