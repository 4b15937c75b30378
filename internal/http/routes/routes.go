// Package routes exposes the cache control plane: warming triggers,
// invalidation, namespace clears, metrics and warming-task administration.
// Per-item store failures are already absorbed by the cache layer, so these
// endpoints report success with counts; operators find store trouble in the
// metrics and health endpoints, not in error responses here.
package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/quoteflow/cachecore/cache"
	appmw "github.com/quoteflow/cachecore/internal/http/middleware"
	"github.com/quoteflow/cachecore/internal/jobs"
)

// Enqueuer is the slice of asynq.Client the warm/refresh handlers need.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	Router   *chi.Mux
	Cache    *cache.Service
	Registry *cache.Registry
	Queue    Enqueuer
	Log      zerolog.Logger
}

type ServerOptions struct {
	Cache      *cache.Service
	Registry   *cache.Registry
	Queue      Enqueuer
	AdminToken string
	Log        zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Cache: opts.Cache, Registry: opts.Registry, Queue: opts.Queue, Log: opts.Log}

	r.Get("/healthz", s.handleHealth)

	r.Group(func(pr chi.Router) {
		pr.Use(appmw.RequireToken(opts.AdminToken))

		pr.Post("/cache/warm", s.handleEnqueue(jobs.TaskWarmAll))
		pr.Post("/cache/warm/critical", s.handleEnqueue(jobs.TaskWarmCritical))
		pr.Post("/cache/refresh", s.handleEnqueue(jobs.TaskRefresh))

		pr.Post("/cache/invalidate/tags", s.handleInvalidateTags)
		pr.Post("/cache/invalidate/dependencies", s.handleInvalidateDependencies)
		pr.Delete("/cache/namespaces/{namespace}", s.handleClearNamespace)

		pr.Get("/cache/metrics", s.handleMetrics)
		pr.Delete("/cache/metrics", s.handleResetMetrics)

		pr.Get("/cache/warming/tasks", s.handleListTasks)
		pr.Patch("/cache/warming/tasks/{name}", s.handleToggleTask)
		pr.Delete("/cache/warming/tasks/{name}", s.handleRemoveTask)
	})

	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error().Err(err).Msg("write response failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Cache.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEnqueue hands a warming/refresh trigger to the worker rather than
// running it in-request; a full warm can take a while and the operator only
// needs the acknowledgement.
func (s *Server) handleEnqueue(taskType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.Queue.Enqueue(asynq.NewTask(taskType, nil), asynq.Queue(jobs.QueueWarming))
		if err != nil {
			s.Log.Error().Err(err).Str("task", taskType).Msg("enqueue failed")
			http.Error(w, "could not queue task", http.StatusInternalServerError)
			return
		}
		s.Log.Info().Str("task", taskType).Str("id", info.ID).Msg("task queued")
		s.writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
	}
}

func (s *Server) handleInvalidateTags(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Tags) == 0 {
		http.Error(w, "tags required", http.StatusBadRequest)
		return
	}
	removed := s.Cache.InvalidateByTags(r.Context(), body.Tags)
	s.writeJSON(w, http.StatusOK, map[string]int{"invalidated": removed})
}

func (s *Server) handleInvalidateDependencies(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dependencies []string `json:"dependencies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Dependencies) == 0 {
		http.Error(w, "dependencies required", http.StatusBadRequest)
		return
	}
	removed := s.Cache.InvalidateByDependencies(r.Context(), body.Dependencies)
	s.writeJSON(w, http.StatusOK, map[string]int{"invalidated": removed})
}

func (s *Server) handleClearNamespace(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	cleared := s.Cache.ClearNamespace(r.Context(), namespace)
	s.writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Cache.Metrics())
}

func (s *Server) handleResetMetrics(w http.ResponseWriter, r *http.Request) {
	s.Cache.ResetMetrics()
	w.WriteHeader(http.StatusNoContent)
}

// taskView is the wire shape of a warming task; fetch functions stay
// server-side.
type taskView struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Priority  int    `json:"priority"`
	Enabled   bool   `json:"enabled"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.Registry.Tasks()
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView{
			Name:      t.Name,
			Namespace: t.Namespace,
			Key:       t.Key,
			Priority:  t.Priority,
			Enabled:   t.Enabled,
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		http.Error(w, "enabled required", http.StatusBadRequest)
		return
	}
	if !s.Registry.Toggle(name, *body.Enabled) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	s.Log.Info().Str("task", name).Bool("enabled", *body.Enabled).Msg("warming task toggled")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.Registry.Remove(name) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	s.Log.Info().Str("task", name).Msg("warming task removed")
	w.WriteHeader(http.StatusNoContent)
}
