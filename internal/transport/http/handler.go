package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/challenge"
	"trivia-duel-service/internal/domain"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	qrSize                  = 256
	maxBodyBytes            = 1 << 20
)

type contextKey string

const playerIDKey contextKey = "playerId"

// Handler serves the REST API.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

type meResponse struct {
	Profile domain.Profile `json:"profile"`
	Token   string         `json:"token"`
}

// Me resolves the signed-in profile and issues a player token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, token, err := h.service.SignIn(r.Context(), r.URL.Query().Get("signer_uuid"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Profile: profile, Token: token})
}

func (h *Handler) GenerateTrivia(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := h.service.GenerateTrivia(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) ClassicQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.service.ClassicQuestions(r.Context(), r.URL.Query().Get("locale"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (h *Handler) CreateAIChallenge(w http.ResponseWriter, r *http.Request) {
	var req challenge.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	link, err := h.service.CreateAIChallenge(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *Handler) GetAIChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetAIChallenge(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateClassicChallenge(w http.ResponseWriter, r *http.Request) {
	var req domain.ClassicChallenge
	if !decodeBody(w, r, &req) {
		return
	}
	link, err := h.service.CreateClassicChallenge(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) ResolveClassic(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.ResolveClassic(r.Context(), mux.Vars(r)["token"], r.URL.Query().Get("locale"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ShareQR renders a share URL as a PNG QR code.
func (h *Handler) ShareQR(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
	if err != nil {
		log.Printf("qr generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Stats(r.Context(), playerID(r.Context())))
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Notifications(r.Context(), playerID(r.Context())))
}

func (h *Handler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	h.service.MarkNotificationsRead(r.Context(), playerID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.service.ClearNotifications(r.Context(), playerID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.service.Authenticate(requestToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			return
		}
		ctx := context.WithValue(r.Context(), playerIDKey, claims.PlayerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func playerID(ctx context.Context) string {
	if v, ok := ctx.Value(playerIDKey).(string); ok {
		return v
	}
	return ""
}

// requestToken reads a bearer token, falling back to the token query parameter for websockets.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrContentBlocked):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrChallengeNotFound), errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, app.ErrMalformedGeneration), errors.Is(err, app.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
