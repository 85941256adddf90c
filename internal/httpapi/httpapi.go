// Package httpapi serves the read-only opportunity listing surface named
// in spec.md §1's in-scope list. Grounded on the teacher's cobra/zap
// wiring style (cmd/indexer/main.go) since the teacher has no HTTP server
// of its own to adapt from; uses net/http.ServeMux directly rather than a
// router framework, matching the "no extra surface beyond what's asked
// for" texture of the rest of the teacher's command wiring. Auth/JWT is
// explicitly out of scope and is not implemented.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"sentryx/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Server wraps the read-only opportunity listing/lookup/health endpoints.
type Server struct {
	store  *store.Store
	logger *zap.Logger
	mux    *http.ServeMux
}

// New builds a Server with its routes registered.
func New(s *store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{store: s, logger: logger, mux: http.NewServeMux()}
	srv.mux.HandleFunc("/healthz", srv.handleHealthz)
	srv.mux.HandleFunc("/opportunities", srv.handleList)
	srv.mux.HandleFunc("/opportunities/", srv.handleGet)
	return srv
}

// ServeHTTP delegates to the registered mux, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("healthz: database ping failed", zap.Error(err))
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleList serves GET /opportunities?status=&chainId=&limit=&offset=.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	status := q.Get("status")

	var chainID *uint64
	if raw := q.Get("chainId"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid chainId", http.StatusBadRequest)
			return
		}
		chainID = &v
	}

	limit := parseIntDefault(q.Get("limit"), defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := parseIntDefault(q.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	opps, err := s.store.ListOpportunities(r.Context(), chainID, status, limit, offset)
	if err != nil {
		s.logger.Warn("list opportunities failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, opps)
}

// handleGet serves GET /opportunities/{chainId}/{txHash}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	chainID, txHash, ok := parseOpportunityPath(r.URL.Path)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	opp, found, err := s.store.GetOpportunity(r.Context(), chainID, txHash)
	if err != nil {
		s.logger.Warn("get opportunity failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, opp)
}

// parseOpportunityPath extracts {chainId}/{txHash} from
// "/opportunities/{chainId}/{txHash}".
func parseOpportunityPath(path string) (chainID uint64, txHash string, ok bool) {
	const prefix = "/opportunities/"
	if len(path) <= len(prefix) {
		return 0, "", false
	}
	rest := path[len(prefix):]
	slash := -1
	for i, c := range rest {
		if c == '/' {
			slash = i
			break
		}
	}
	if slash <= 0 || slash == len(rest)-1 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(rest[:slash], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, rest[slash+1:], true
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
