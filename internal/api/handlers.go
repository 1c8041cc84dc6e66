package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/hazuki/ronlog/internal/domain"
	"github.com/hazuki/ronlog/internal/events"
	"github.com/hazuki/ronlog/internal/storage"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// storeStatus maps storage and domain errors to HTTP status codes.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrGameExists):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidSortKey):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateUser),
		errors.Is(err, domain.ErrPlayerCount),
		errors.Is(err, domain.ErrScoreCount),
		errors.Is(err, domain.ErrBadTimestamp):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type createGameRequest struct {
	GameID      string   `json:"game_id"`
	Date        string   `json:"date"`
	Users       []string `json:"users"`
	FinalScores []int    `json:"final_scores"`
}

func (r *Router) handleCreateGame(w http.ResponseWriter, req *http.Request) {
	var body createGameRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.GameID == "" {
		body.GameID = "web:" + uuid.NewString()
	}

	record, err := domain.NewGameRecord(body.GameID, body.Date, body.Users, body.FinalScores)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.store.InsertGame(req.Context(), record); err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	r.bus.PublishGame(events.GameEvent{
		Type:   events.TypeGameRecorded,
		GameID: record.GameID,
		Users:  record.Users,
		Winner: record.Winner(),
	})

	writeJSON(w, http.StatusCreated, record)
}

func (r *Router) handleGetGame(w http.ResponseWriter, req *http.Request) {
	gameID := req.PathValue("id")

	record, err := r.store.GetGame(req.Context(), gameID)
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (r *Router) handleDeleteGame(w http.ResponseWriter, req *http.Request) {
	gameID := req.PathValue("id")

	record, err := r.store.GetGame(req.Context(), gameID)
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	if err := r.store.DeleteGame(req.Context(), gameID); err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	r.bus.PublishGame(events.GameEvent{
		Type:   events.TypeGameDeleted,
		GameID: record.GameID,
		Users:  record.Users,
		Winner: record.Winner(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) handleGetUserGames(w http.ResponseWriter, req *http.Request) {
	userID := req.PathValue("id")

	scores, err := r.store.GetUserGames(req.Context(), userID)
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	if scores == nil {
		scores = []domain.UserScoreRecord{}
	}

	writeJSON(w, http.StatusOK, scores)
}

func (r *Router) handleGetUserStats(w http.ResponseWriter, req *http.Request) {
	userID := req.PathValue("id")

	stats, err := r.store.GetUserStats(req.Context(), userID)
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handleGetLeaderboard(w http.ResponseWriter, req *http.Request) {
	sortBy := req.URL.Query().Get("sort")
	if sortBy == "" {
		sortBy = "games_won"
	}
	limit, err := parseLimit(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := r.store.ListUserStats(req.Context(), sortBy, limit)
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	if stats == nil {
		stats = []domain.UserStatsRecord{}
	}

	writeJSON(w, http.StatusOK, stats)
}

// csvWriter sets download headers and wraps the response in gzip when the
// client asks for it with ?gzip=1.
func csvWriter(w http.ResponseWriter, req *http.Request, filename string) (io.Writer, func()) {
	w.Header().Set("Content-Type", "text/csv")
	if req.URL.Query().Get("gzip") != "1" {
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		return w, func() {}
	}
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename+".gz")
	gz := gzip.NewWriter(w)
	return gz, func() {
		if err := gz.Close(); err != nil {
			log.Printf("Error closing gzip writer: %v", err)
		}
	}
}

func (r *Router) handleExportScores(w http.ResponseWriter, req *http.Request) {
	out, done := csvWriter(w, req, "scores.csv")
	defer done()
	if err := r.store.ExportScoresCSV(req.Context(), out); err != nil {
		log.Printf("Error exporting scores: %v", err)
	}
}

func (r *Router) handleExportStats(w http.ResponseWriter, req *http.Request) {
	out, done := csvWriter(w, req, "stats.csv")
	defer done()
	if err := r.store.ExportStatsCSV(req.Context(), out); err != nil {
		log.Printf("Error exporting stats: %v", err)
	}
}

func (r *Router) handleFixStats(w http.ResponseWriter, req *http.Request) {
	if err := r.store.FixUserStats(req.Context()); err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
