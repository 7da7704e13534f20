package agentcard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HandleCard serves GET {mount}/agent-card. A Cache-Control: max-age=N
// request header forces a rebuild when the cached entry is more than N
// seconds old.
func (s *Server) HandleCard(w http.ResponseWriter, r *http.Request) {
	caller := callerFromRequest(r)
	if maxAge, ok := parseMaxAge(r.Header.Get("Cache-Control")); ok {
		s.invalidateIfStale(caller, maxAge)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Card(caller))
}

// HandleCardJWS serves GET {mount}/agent-card.jws. Responds 501 when
// signing was never enabled.
func (s *Server) HandleCardJWS(w http.ResponseWriter, r *http.Request) {
	compact, err := s.CardJWS(callerFromRequest(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotImplemented)
		return
	}
	w.Header().Set("Content-Type", "application/jose")
	_, _ = w.Write([]byte(compact))
}

// HandleCapabilities serves GET {mount}/capabilities: the raw registry, not
// the derived card.
func (s *Server) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Registry.Capabilities())
}

func callerFromRequest(r *http.Request) string {
	if caller := r.Header.Get("X-Caller-Id"); caller != "" {
		return caller
	}
	return defaultCacheKey
}

func (s *Server) invalidateIfStale(caller string, maxAge int) {
	s.mu.Lock()
	entry, ok := s.cache[normalizeCaller(caller)]
	s.mu.Unlock()
	if !ok {
		return
	}
	if time.Since(entry.cachedAt) > time.Duration(maxAge)*time.Second {
		s.Invalidate(caller)
	}
}

func parseMaxAge(cacheControl string) (int, bool) {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "max-age=") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(part, "max-age="))
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
