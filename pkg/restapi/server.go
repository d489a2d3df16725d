// Package restapi exposes the engine over HTTP: point lookups, appends,
// deletes, and range samples behind JWT-authenticated routes, plus a
// Prometheus /metrics endpoint.
package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lsmsample/lsmsample/pkg/authn"
	"github.com/lsmsample/lsmsample/pkg/logging"
	"github.com/lsmsample/lsmsample/pkg/lsm"
	"github.com/lsmsample/lsmsample/pkg/metrics"
)

// Server wires an Engine to an http.Handler.
type Server struct {
	engine  *lsm.Engine
	auth    *authn.Manager
	users   *authn.UserStore
	reg     *metrics.Registry
	logger  logging.Logger
	mux     *http.ServeMux
	schema  graphql.Schema
}

// NewServer builds a Server whose mux is ready to pass to http.Server.
// users may be nil; when set, it backs the /v1/login endpoint.
func NewServer(engine *lsm.Engine, auth *authn.Manager, users *authn.UserStore, reg *metrics.Registry, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{engine: engine, auth: auth, users: users, reg: reg, logger: logger, mux: http.NewServeMux()}
	schema, err := buildSchema(s)
	if err != nil {
		logger.Error("failed to build graphql schema", logging.Error(err))
	}
	s.schema = schema
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	s.mux.HandleFunc("/v1/records/", s.requireAuth(authn.RoleReader, s.handleRecord))
	s.mux.HandleFunc("/v1/sample", s.requireAuth(authn.RoleReader, s.handleRangeSample))
	s.mux.HandleFunc("/v1/stats", s.requireAuth(authn.RoleReader, s.handleStats))
	s.mux.HandleFunc("/v1/login", s.handleLogin)
	s.mux.HandleFunc("/v1/stream", s.requireAuth(authn.RoleReader, s.handleStream))
	s.mux.HandleFunc("/v1/graphql", s.requireAuth(authn.RoleReader, s.handleGraphQL))
}

type recordResponse struct {
	Key         int64   `json:"key"`
	Value       int64   `json:"value"`
	Weight      float64 `json:"weight"`
	IsTombstone bool    `json:"is_tombstone"`
}

type appendRequest struct {
	Value       int64   `json:"value"`
	Weight      float64 `json:"weight"`
	IsTombstone bool    `json:"is_tombstone"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// requireAuth wraps handler so it only runs for a valid bearer token
// whose role is at least minRole in privilege.
func (s *Server) requireAuth(minRole string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.auth.ValidateToken(context.Background(), token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if minRole == authn.RoleWriter && !claims.CanWrite() {
			s.respondError(w, http.StatusForbidden, "writer role required")
			return
		}
		if minRole == authn.RoleAdmin && !claims.CanAdmin() {
			s.respondError(w, http.StatusForbidden, "admin role required")
			return
		}

		handler(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims)))
	}
}

type claimsContextKey struct{}

func claimsFromContext(ctx context.Context) (*authn.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authn.Claims)
	return claims, ok
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	keyStr := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	key, err := strconv.ParseInt(keyStr, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid key")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, ok := s.engine.Get(key)
		if !ok {
			s.respondError(w, http.StatusNotFound, "key not found")
			return
		}
		s.respondJSON(w, http.StatusOK, recordResponse{Key: rec.Key, Value: rec.Value, Weight: rec.Weight, IsTombstone: rec.IsTombstone()})

	case http.MethodPut:
		if claims, ok := claimsFromContext(r.Context()); !ok || !claims.CanWrite() {
			s.respondError(w, http.StatusForbidden, "writer role required")
			return
		}
		var req appendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		weight := req.Weight
		if weight == 0 {
			weight = 1.0
		}
		if err := s.engine.Append(key, req.Value, weight, false); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusCreated, recordResponse{Key: key, Value: req.Value, Weight: weight})

	case http.MethodDelete:
		if claims, ok := claimsFromContext(r.Context()); !ok || !claims.CanWrite() {
			s.respondError(w, http.StatusForbidden, "writer role required")
			return
		}
		var req appendRequest
		json.NewDecoder(r.Body).Decode(&req)
		if err := s.engine.Append(key, req.Value, 1.0, true); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRangeSample(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lower, err := strconv.ParseInt(q.Get("lower"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lower bound")
		return
	}
	upper, err := strconv.ParseInt(q.Get("upper"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid upper bound")
		return
	}
	k, err := strconv.Atoi(q.Get("k"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid k")
		return
	}

	out, err := s.engine.RangeSample(lower, upper, k)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := make([]recordResponse, len(out))
	for i, rec := range out {
		resp[i] = recordResponse{Key: rec.Key, Value: rec.Value, Weight: rec.Weight}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	RecordCount    int     `json:"record_count"`
	TombstoneCount int     `json:"tombstone_count"`
	Height         int     `json:"height"`
	Utilization    float64 `json:"memory_utilization"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, statsResponse{
		RecordCount:    s.engine.RecordCount(),
		TombstoneCount: s.engine.TombstoneCount(),
		Height:         s.engine.Height(),
		Utilization:    s.engine.MemoryUtilization(),
	})
}
