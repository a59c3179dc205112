package api

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/recommender/internal/config"
	"github.com/knowledge-engine/recommender/internal/engine"
	"github.com/knowledge-engine/recommender/internal/search"
)

const defaultSampleSize = 5

type Server struct {
	Engine *engine.Engine
	Config config.RankingConfig
	Logger *logrus.Entry
	Router chi.Router

	// Shuffle permutes sampled results; defaults to math/rand/v2
	Shuffle func(n int, swap func(i, j int))

	httpServer *http.Server
}

func NewServer(eng *engine.Engine, cfg config.RankingConfig, logger *logrus.Entry) *Server {
	s := &Server{
		Engine:  eng,
		Config:  cfg,
		Logger:  logger.WithField("component", "api"),
		Router:  chi.NewRouter(),
		Shuffle: rand.Shuffle,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(s.requestLogger)
	s.Router.Use(middleware.Recoverer)

	s.Router.Get("/healthz", s.handleHealth)
	s.Router.Handle("/metrics", promhttp.Handler())

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/reload", s.handleReload)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSnapshot)

			r.Get("/recommendations", s.handleRecommendByName)
			r.Post("/recommendations/attributes", s.handleRecommendByAttributes)
			r.Get("/products/{index}", s.handleGetProduct)
		})
	})
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start(addr string, cfg config.ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.Logger.Infof("Starting API Server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type RecommendationView struct {
	RowIndex    int     `json:"row_index"`
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	Color       string  `json:"color"`
	Size        string  `json:"size"`
	Material    string  `json:"material"`
	Score       float64 `json:"score"`
}

type RecommendationsResponse struct {
	Product    string               `json:"product,omitempty"`
	Attributes []string             `json:"attributes,omitempty"`
	SnapshotID string               `json:"snapshot_id"`
	Results    []RecommendationView `json:"results"`
}

type ProductResponse struct {
	RowIndex    int    `json:"row_index"`
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Material    string `json:"material"`
	FeatureText string `json:"feature_text"`
}

type StatusResponse struct {
	Ready          bool       `json:"ready"`
	SnapshotID     string     `json:"snapshot_id,omitempty"`
	Source         string     `json:"source,omitempty"`
	Items          int        `json:"items"`
	VocabularySize int        `json:"vocabulary_size"`
	LoadedAt       *time.Time `json:"loaded_at,omitempty"`
	Reloads        int64      `json:"reloads"`
	FailedReloads  int64      `json:"failed_reloads"`
	LastError      string     `json:"last_error,omitempty"`
	Uptime         string     `json:"uptime"`
}

type AttributesRequest struct {
	Attributes []string `json:"attributes"`
	Limit      int      `json:"limit"`
	Sample     bool     `json:"sample"`
	// SampleFrom restricts sampling to the top N ranked items; 0 samples from all
	SampleFrom int `json:"sample_from"`
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.Stats()

	resp := StatusResponse{
		Reloads:       stats.Reloads,
		FailedReloads: stats.FailedReloads,
		LastError:     stats.LastError,
		Uptime:        time.Since(stats.StartTime).Round(time.Second).String(),
	}

	if snap := s.Engine.Current(); snap != nil {
		resp.Ready = true
		resp.SnapshotID = snap.ID
		resp.Source = snap.Source
		resp.Items = snap.Len()
		resp.VocabularySize = snap.Vocabulary.Len()
		loadedAt := snap.BuiltAt
		resp.LoadedAt = &loadedAt
	}

	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Engine.Reload(r.Context())
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":      "reloaded",
		"snapshot_id": snap.ID,
		"items":       snap.Len(),
	})
}

func (s *Server) handleRecommendByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'name' is required"})
		return
	}

	k := s.Config.DefaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'k' must be a positive integer"})
			return
		}
		k = parsed
	}
	if s.Config.MaxK > 0 && k > s.Config.MaxK {
		k = s.Config.MaxK
	}

	res, err := s.Engine.RecommendByName(name, k)
	if err != nil {
		s.rankingError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, RecommendationsResponse{
		Product:    name,
		SnapshotID: res.Snapshot.ID,
		Results:    toViews(res.Recommendations),
	})
}

func (s *Server) handleRecommendByAttributes(w http.ResponseWriter, r *http.Request) {
	var req AttributesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	if len(req.Attributes) == 0 {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "At least one attribute is required"})
		return
	}
	if req.Limit < 0 || req.SampleFrom < 0 {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "limit and sample_from must not be negative"})
		return
	}

	res, err := s.Engine.RecommendByAttributes(req.Attributes)
	if err != nil {
		s.rankingError(w, err)
		return
	}

	recs := res.Recommendations
	if req.Sample {
		limit := req.Limit
		if limit == 0 {
			limit = s.Config.SampleSize
		}
		if limit <= 0 {
			limit = defaultSampleSize
		}
		recs = s.sample(recs, limit, req.SampleFrom)
	} else if req.Limit > 0 && len(recs) > req.Limit {
		recs = recs[:req.Limit]
	}

	jsonResponse(w, http.StatusOK, RecommendationsResponse{
		Attributes: req.Attributes,
		SnapshotID: res.Snapshot.ID,
		Results:    toViews(recs),
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Product index must be an integer"})
		return
	}

	item, err := s.Engine.Current().Item(row)
	if err != nil {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	jsonResponse(w, http.StatusOK, ProductResponse{
		RowIndex:    item.RowIndex,
		ProductName: item.ProductName,
		Category:    item.Category,
		Color:       item.Color,
		Size:        item.Size,
		Material:    item.Material,
		FeatureText: item.FeatureText,
	})
}

// sample draws limit items at random from the first pool ranked results
func (s *Server) sample(recs []engine.Recommendation, limit, pool int) []engine.Recommendation {
	if pool > 0 && pool < len(recs) {
		recs = recs[:pool]
	}
	shuffled := make([]engine.Recommendation, len(recs))
	copy(shuffled, recs)
	s.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > limit {
		shuffled = shuffled[:limit]
	}
	return shuffled
}

func (s *Server) rankingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrItemNotFound):
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrNotReady):
		jsonResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		s.Logger.WithError(err).Error("Ranking failed")
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func toViews(recs []engine.Recommendation) []RecommendationView {
	views := make([]RecommendationView, len(recs))
	for i, rec := range recs {
		views[i] = RecommendationView{
			RowIndex:    rec.Item.RowIndex,
			ProductName: rec.Item.ProductName,
			Category:    rec.Item.Category,
			Color:       rec.Item.Color,
			Size:        rec.Item.Size,
			Material:    rec.Item.Material,
			Score:       rec.Score,
		}
	}
	return views
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
