package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"searchlens/coordinator"
	"searchlens/history"
	"searchlens/inference"
	"searchlens/pkg/errkind"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Pipeline is the coordinator surface the server needs.
type Pipeline interface {
	Summary(ctx context.Context, rawURL string) coordinator.SummaryResult
	Topics(ctx context.Context, pageText string) coordinator.TopicsResult
	Expand(ctx context.Context, req coordinator.ExpandRequest) coordinator.ExpandResult
	ClearCache()
	Stats() coordinator.Stats
}

type HistoryResponse struct {
	History []history.Visit `json:"history"`
}

type PermissionResponse struct {
	HasPermission bool `json:"hasPermission"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Server struct {
	pipeline Pipeline
	history  history.Store
	logger   *zap.Logger
}

// NewServer wires the pipeline and an optional history store. A nil store
// reports no history permission.
func NewServer(pipeline Pipeline, store history.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: pipeline, history: store, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/message", s.message)
		r.Post("/summary", handle[GetSummary](s))
		r.Post("/topics", handle[GetTopics](s))
		r.Post("/expand", handle[ExpandQuery](s))
		r.Post("/history", handle[RecordVisit](s))
		r.Get("/history", s.getHistory)
		r.Get("/history/permission", func(w http.ResponseWriter, r *http.Request) {
			s.respond(w, r, CheckHistoryPermission{})
		})
		r.Delete("/cache", func(w http.ResponseWriter, r *http.Request) {
			s.respond(w, r, ClearCache{})
		})
		r.Get("/stats", s.stats)
	})

	return r
}

// Dispatch runs msg and returns the JSON value to send back. A nil value
// means there is no reply.
func (s *Server) Dispatch(ctx context.Context, msg Message) (any, error) {
	switch m := msg.(type) {
	case GetSummary:
		return s.pipeline.Summary(ctx, m.URL), nil
	case GetTopics:
		return s.pipeline.Topics(ctx, m.PageText), nil
	case ExpandQuery:
		return s.expand(ctx, m), nil
	case GetHistory:
		return s.recentHistory(ctx, m)
	case CheckHistoryPermission:
		return PermissionResponse{HasPermission: s.history != nil}, nil
	case ClearCache:
		s.pipeline.ClearCache()
		return nil, nil
	case RecordVisit:
		if s.history == nil {
			return nil, errkind.Newf(errkind.InvalidInput, "history", "history is disabled")
		}
		if err := s.history.Record(ctx, m.Visit); err != nil {
			return nil, err
		}
		return statusResponse{Success: true}, nil
	default:
		return nil, fmt.Errorf("unhandled message %T", msg)
	}
}

func (s *Server) expand(ctx context.Context, m ExpandQuery) coordinator.ExpandResult {
	visits := m.BrowserHistory
	if len(visits) == 0 && s.history != nil {
		window, maxItems := history.Query(0, 0)
		recent, err := s.history.Recent(ctx, window, maxItems)
		if err != nil {
			s.logger.Warn("history_lookup_failed", zap.Error(err))
		}
		visits = recent
	}

	items := make([]inference.HistoryItem, 0, len(visits))
	for _, v := range visits {
		items = append(items, inference.HistoryItem{URL: v.URL, Title: v.Title})
	}
	return s.pipeline.Expand(ctx, coordinator.ExpandRequest{
		Query:    m.Query,
		Location: m.Location,
		History:  items,
	})
}

func (s *Server) recentHistory(ctx context.Context, m GetHistory) (HistoryResponse, error) {
	if s.history == nil {
		return HistoryResponse{History: []history.Visit{}}, nil
	}
	window, maxItems := history.Query(m.Minutes, m.MaxItems)
	visits, err := s.history.Recent(ctx, window, maxItems)
	if err != nil {
		return HistoryResponse{}, err
	}
	if visits == nil {
		visits = []history.Visit{}
	}
	return HistoryResponse{History: visits}, nil
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, r, msg)
}

// handle decodes the request body straight into M.
func handle[M Message](s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg M
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&msg); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		s.respond(w, r, msg)
	}
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msg := GetHistory{}
	for name, dst := range map[string]*int{"minutes": &msg.Minutes, "maxItems": &msg.MaxItems} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s parameter", name))
			return
		}
		*dst = n
	}
	s.respond(w, r, msg)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, msg Message) {
	resp, err := s.Dispatch(r.Context(), msg)
	if err != nil {
		s.logger.Warn("dispatch_failed",
			zap.String("action", string(msg.action())),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		status := http.StatusInternalServerError
		if errkind.Is(err, errkind.InvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, coordinator.Message(err))
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Stats())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, statusResponse{Success: false, Error: message})
}
