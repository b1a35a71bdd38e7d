// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johncui/hydrogpt/pkg/chat"
	"github.com/johncui/hydrogpt/pkg/engine"
	"github.com/johncui/hydrogpt/pkg/knowledge"
	"github.com/johncui/hydrogpt/pkg/markup"
	"github.com/johncui/hydrogpt/pkg/model"
)

// Assistant is the engine surface the API needs.
type Assistant interface {
	model.Generator
	Interactions() []model.Interaction
	Rate(ctx context.Context, interactionID string, rating int) (model.Interaction, error)
}

type Options struct {
	Assistant Assistant
	Chats     *chat.Manager
	Knowledge *knowledge.Base
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

type handler struct {
	assistant Assistant
	chats     *chat.Manager
	knowledge *knowledge.Base
	logger    *slog.Logger
}

// New builds the router.
func New(opt Options) http.Handler {
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if opt.Gatherer == nil {
		opt.Gatherer = prometheus.DefaultGatherer
	}
	h := &handler{
		assistant: opt.Assistant,
		chats:     opt.Chats,
		knowledge: opt.Knowledge,
		logger:    opt.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(opt.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", h.generate)

		r.Get("/chats", h.listChats)
		r.Post("/chats", h.createChat)
		r.Get("/chats/{chatID}", h.getChat)
		r.Post("/chats/{chatID}/messages", h.sendMessage)

		r.Get("/interactions", h.listInteractions)
		r.Post("/interactions/{interactionID}/rating", h.rateInteraction)

		r.Get("/knowledge", h.listTopics)
		r.Get("/knowledge/search", h.searchKnowledge)
		r.Get("/knowledge/{topic}", h.getTopic)
		r.Post("/knowledge/{topic}/facts", h.addFact)
	})

	return r
}

type generateRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type generateResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
	HTML           string `json:"html"`
}

func (h *handler) generate(w http.ResponseWriter, req *http.Request) {
	var in generateRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.ConversationID == "" {
		in.ConversationID = uuid.NewString()
	}

	text := h.assistant.Generate(req.Context(), in.Message, in.ConversationID)
	writeJSON(w, generateResponse{
		ConversationID: in.ConversationID,
		Response:       text,
		HTML:           markup.ToHTML(text),
	})
}

func (h *handler) listChats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.chats.List())
}

func (h *handler) createChat(w http.ResponseWriter, req *http.Request) {
	c := h.chats.NewChat(req.Context())
	w.Header().Set("Location", "/api/chats/"+c.ID)
	writeJSONStatus(w, http.StatusCreated, newChatView(c))
}

type messageView struct {
	User      string    `json:"user"`
	AI        string    `json:"ai"`
	AIHTML    string    `json:"ai_html"`
	Timestamp time.Time `json:"timestamp"`
}

type chatView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Timestamp time.Time     `json:"timestamp"`
	Messages  []messageView `json:"messages"`
}

func newChatView(c model.ChatSession) chatView {
	v := chatView{ID: c.ID, Title: c.Title, Timestamp: c.Timestamp, Messages: []messageView{}}
	for _, m := range c.Messages {
		v.Messages = append(v.Messages, messageView{
			User:      m.UserText,
			AI:        m.AssistantText,
			AIHTML:    markup.ToHTML(m.AssistantText),
			Timestamp: m.Timestamp,
		})
	}
	return v
}

func (h *handler) getChat(w http.ResponseWriter, req *http.Request) {
	c, err := h.chats.Get(chi.URLParam(req, "chatID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, newChatView(c))
}

type sendRequest struct {
	Message string `json:"message"`
}

func (h *handler) sendMessage(w http.ResponseWriter, req *http.Request) {
	var in sendRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reply, err := h.chats.Send(req.Context(), chi.URLParam(req, "chatID"), in.Message)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, reply)
}

func (h *handler) listInteractions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.assistant.Interactions())
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

func (h *handler) rateInteraction(w http.ResponseWriter, req *http.Request) {
	var in ratingRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item, err := h.assistant.Rate(req.Context(), chi.URLParam(req, "interactionID"), in.Rating)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, item)
}

func (h *handler) listTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.knowledge.Topics())
}

func (h *handler) getTopic(w http.ResponseWriter, req *http.Request) {
	t, ok := h.knowledge.Query(chi.URLParam(req, "topic"))
	if !ok {
		http.Error(w, "topic not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t)
}

func (h *handler) searchKnowledge(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query().Get("q")
	limit := knowledge.DefaultSearchLimit
	if v := req.URL.Query().Get("k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	writeJSON(w, h.knowledge.Search(query, limit))
}

type factRequest struct {
	Fact string `json:"fact"`
}

func (h *handler) addFact(w http.ResponseWriter, req *http.Request) {
	var in factRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, err := h.knowledge.Add(req.Context(), chi.URLParam(req, "topic"), in.Fact)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, t)
}

// writeError maps domain errors to status codes.
func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, engine.ErrInvalidRating),
		errors.Is(err, knowledge.ErrEmptyTopic),
		errors.Is(err, knowledge.ErrEmptyFact):
		status = http.StatusBadRequest
	case errors.Is(err, chat.ErrChatNotFound),
		errors.Is(err, engine.ErrInteractionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chat.ErrBusy):
		status = http.StatusConflict
	default:
		h.logger.Error("request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v before touching the response so an encoding
// failure can still be reported as a 500.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(raw, '\n'))
}
