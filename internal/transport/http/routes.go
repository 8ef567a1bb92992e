package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skip2/go-qrcode"

	"quiz-orchestrator/internal/app"
	"quiz-orchestrator/internal/validation"
)

const qrSize = 320

// SessionLookup reports whether a session is registered.
type SessionLookup interface {
	Get(id string) (*app.Session, bool)
}

// MuxConfig wires the HTTP edge.
type MuxConfig struct {
	WS       *WSHandler
	Quizzes  app.QuizRepository
	Sessions SessionLookup
	// PublicURL is the externally visible base URL used in join links. When
	// empty it is derived from the request.
	PublicURL string
	Logger    *slog.Logger
}

func NewMux(c MuxConfig) http.Handler {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	mux := httprouter.New()

	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandlerFunc(http.MethodGet, "/ws", c.WS.ServeWS)
	mux.GET("/quizzes", quizListHandler(c.Quizzes, c.Logger))
	mux.GET("/sessions/:id/qr", qrHandler(c.Sessions, c.PublicURL))
	mux.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	return mux
}

func quizListHandler(quizzes app.QuizRepository, log *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		list, err := quizzes.ListQuizzes(r.Context())
		if err != nil {
			log.Error("http: list quizzes failed", "error", err)
			http.Error(w, "could not list quizzes", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

// qrHandler renders a PNG QR code of the participant join link of a session.
func qrHandler(sessions SessionLookup, publicURL string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := validation.SessionID(ps.ByName("id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := sessions.Get(id); !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(JoinURL(baseURL(r, publicURL), id), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// JoinURL is the link participants open to join session id.
func JoinURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/quiz/lobby.html?sessionId=" + url.QueryEscape(id)
}

func baseURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return publicURL
	}
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
