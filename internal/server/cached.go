package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/bookgraph/internal/cache"
)

// cached returns the stored response body for endpoint and id or computes
// it. Only 200 responses are stored. Concurrent misses for one key may both
// compute; the last writer wins.
func (s *Server) cached(endpoint, id string, ttl time.Duration, compute func() (int, any)) (int, []byte) {
	key := cache.Key(endpoint, id)

	if body, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit(endpoint)
		return http.StatusOK, body
	}
	s.metrics.CacheMiss(endpoint)

	status, payload := compute()

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.String("endpoint", endpoint), zap.Error(err))
		body, _ = json.Marshal(errorResponse{Error: "Failed to encode response"})
		return http.StatusInternalServerError, body
	}

	if status == http.StatusOK {
		if err := s.cache.Set(key, body, ttl); err != nil {
			s.logger.Warn("failed to store response in cache",
				zap.String("endpoint", endpoint),
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}

	return status, body
}
