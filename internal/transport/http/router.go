package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"trivia-duel-service/internal/app"
)

// NewRouter wires the REST API, the game websocket and the health check.
func NewRouter(service *app.GameService, ws *WSHandler, allowedOrigin string) http.Handler {
	h := NewHandler(service)
	r := mux.NewRouter()
	r.Use(corsMiddleware(allowedOrigin))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.HandleFunc("/ws", ws.ServeWS).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/me", h.Me).Methods("GET", "OPTIONS")
	v1.HandleFunc("/generate-trivia", h.GenerateTrivia).Methods("POST", "OPTIONS")
	v1.HandleFunc("/classic-questions", h.ClassicQuestions).Methods("GET", "OPTIONS")
	v1.HandleFunc("/challenges", h.CreateAIChallenge).Methods("POST", "OPTIONS")
	v1.HandleFunc("/challenges", h.GetAIChallenge).Methods("GET", "OPTIONS")
	v1.HandleFunc("/challenges/classic", h.CreateClassicChallenge).Methods("POST", "OPTIONS")
	v1.HandleFunc("/challenges/classic/{token}", h.ResolveClassic).Methods("GET", "OPTIONS")
	v1.HandleFunc("/leaderboard", h.Leaderboard).Methods("GET", "OPTIONS")
	v1.HandleFunc("/share/qr", h.ShareQR).Methods("GET", "OPTIONS")

	players := v1.PathPrefix("/players/me").Subrouter()
	players.Use(h.requirePlayer)
	players.HandleFunc("/stats", h.Stats).Methods("GET", "OPTIONS")
	players.HandleFunc("/notifications", h.Notifications).Methods("GET", "OPTIONS")
	players.HandleFunc("/notifications", h.ClearNotifications).Methods("DELETE", "OPTIONS")
	players.HandleFunc("/notifications/read", h.MarkNotificationsRead).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigin string) mux.MiddlewareFunc {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
