package middleware

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cogniguard/cogniguard/internal/platform/auth"
)

// CacheConfig controls the ETag and Cache-Control behavior of read endpoints.
// Analytics and trend responses are expensive to recompute but change only
// when a conversation or assessment lands, so clients are encouraged to
// revalidate with If-None-Match instead of refetching.
type CacheConfig struct {
	MaxAge             int        // max-age in seconds
	Private            bool       // mark responses private; they are per-user health data
	NoStore            bool       // forbid storing entirely
	VaryHeaders        []string   // headers that change the representation
	ETagEnabled        bool       // emit an ETag on successful GET/HEAD responses
	ConditionalEnabled bool       // answer If-None-Match with 304
	ExcludePaths       []string   // exact paths never given cache headers
	CacheStore         CacheStore // optional response store
}

// DefaultCacheConfig returns the defaults used for the authenticated API
// group: private caching with revalidation, varying on the caller identity.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge:             300,
		Private:            true,
		VaryHeaders:        []string{"Accept", "Authorization"},
		ETagEnabled:        true,
		ConditionalEnabled: true,
	}
}

// CacheStore is a response cache backend. DeletePrefix supports invalidating
// every cached read under a resource when a write lands.
type CacheStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string)
	Clear()
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryCacheStore is a mutex-guarded map store with lazy expiration.
type InMemoryCacheStore struct {
	entries map[string]*cacheEntry
	mu      sync.RWMutex
}

// NewInMemoryCacheStore creates an empty store.
func NewInMemoryCacheStore() *InMemoryCacheStore {
	return &InMemoryCacheStore{entries: make(map[string]*cacheEntry)}
}

// Get returns the cached value, dropping it on the way out if it expired.
func (s *InMemoryCacheStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return entry.data, true
}

// Set stores a value with the given TTL.
func (s *InMemoryCacheStore) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &cacheEntry{data: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes one entry.
func (s *InMemoryCacheStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// DeletePrefix removes every entry whose key starts with prefix.
func (s *InMemoryCacheStore) DeletePrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
}

// Clear drops everything.
func (s *InMemoryCacheStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*cacheEntry)
}

// StartCleanup sweeps expired entries on the given interval until the
// context is cancelled.
func (s *InMemoryCacheStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				now := time.Now()
				for k, v := range s.entries {
					if now.After(v.expiresAt) {
						delete(s.entries, k)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}

// bodyBuffer captures the handler's status and body so the middleware can
// hash or store it before anything reaches the wire.
type bodyBuffer struct {
	writer     http.ResponseWriter
	buf        *bytes.Buffer
	statusCode int
}

func newBodyBuffer(w http.ResponseWriter) *bodyBuffer {
	return &bodyBuffer{writer: w, buf: &bytes.Buffer{}, statusCode: http.StatusOK}
}

func (w *bodyBuffer) Header() http.Header { return w.writer.Header() }

func (w *bodyBuffer) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bodyBuffer) WriteHeader(code int) { w.statusCode = code }

func (w *bodyBuffer) Flush() {}

// flush forwards the captured status and body to the real writer.
func (w *bodyBuffer) flush() error {
	w.writer.WriteHeader(w.statusCode)
	if w.buf.Len() > 0 {
		_, err := w.writer.Write(w.buf.Bytes())
		return err
	}
	return nil
}

// ETagMiddleware hashes successful GET/HEAD bodies into a weak ETag, sets
// Cache-Control and Vary per config, and answers a matching If-None-Match
// with 304 and no body.
func ETagMiddleware(config CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			if pathExcluded(req.URL.Path, config.ExcludePaths) {
				return next(c)
			}

			res := c.Response()
			origWriter := res.Writer
			buf := newBodyBuffer(origWriter)
			res.Writer = buf

			if err := next(c); err != nil {
				res.Writer = origWriter
				return err
			}
			res.Writer = origWriter

			// Errors go out unhashed.
			if buf.statusCode >= 400 {
				return buf.flush()
			}

			res.Header().Set("Cache-Control", cacheControlValue(config))
			if len(config.VaryHeaders) > 0 {
				res.Header().Set("Vary", strings.Join(config.VaryHeaders, ", "))
			}

			if config.ETagEnabled {
				etag := etagFor(buf.buf.Bytes())
				res.Header().Set("ETag", etag)

				if config.ConditionalEnabled {
					if match := req.Header.Get("If-None-Match"); match != "" && etagMatch(match, etag) {
						origWriter.WriteHeader(http.StatusNotModified)
						return nil
					}
				}
			}

			return buf.flush()
		}
	}
}

// ConditionalRequestMiddleware evaluates If-Modified-Since and If-None-Match
// against the handler's Last-Modified/ETag headers, returning 304 on a match
// and 412 when an If-Match precondition fails.
func ConditionalRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			origWriter := res.Writer
			buf := newBodyBuffer(origWriter)
			res.Writer = buf

			if err := next(c); err != nil {
				res.Writer = origWriter
				return err
			}
			res.Writer = origWriter

			if since := req.Header.Get("If-Modified-Since"); since != "" {
				if lastMod := res.Header().Get("Last-Modified"); lastMod != "" {
					ims, errIMS := http.ParseTime(since)
					lm, errLM := http.ParseTime(lastMod)
					if errIMS == nil && errLM == nil && !lm.After(ims) {
						origWriter.WriteHeader(http.StatusNotModified)
						return nil
					}
				}
			}

			if match := req.Header.Get("If-None-Match"); match != "" {
				if etag := res.Header().Get("ETag"); etag != "" && etagMatch(match, etag) {
					origWriter.WriteHeader(http.StatusNotModified)
					return nil
				}
			}

			if match := req.Header.Get("If-Match"); match != "" {
				if etag := res.Header().Get("ETag"); etag != "" && !etagMatch(match, etag) {
					origWriter.WriteHeader(http.StatusPreconditionFailed)
					return nil
				}
			}

			return buf.flush()
		}
	}
}

// ResponseCacheMiddleware caches successful GET responses per authenticated
// user and drops stale entries when a write lands. Everything on the API
// group is per-user health data, so requests without an authenticated user
// bypass the store, and cache keys carry the user id so one user's
// conversations or trends can never be served to another. A successful
// POST/PUT/PATCH/DELETE invalidates the cached reads of its resource and of
// the aggregates derived from it (see writeInvalidations).
func ResponseCacheMiddleware(store CacheStore, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if req.Method != http.MethodGet {
				return invalidateOnWrite(c, next, store)
			}

			userID := auth.UserIDFromContext(req.Context())
			if userID == "" {
				c.Response().Header().Set("X-Cache", "SKIP")
				return next(c)
			}

			key := cacheKey(userID, req.URL.Path, req.URL.RawQuery, req.Header.Get("Accept"))
			if data, ok := store.Get(key); ok {
				res := c.Response()
				res.Header().Set("X-Cache", "HIT")
				// Handlers emit JSON only.
				res.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				res.Writer.WriteHeader(http.StatusOK)
				_, err := res.Writer.Write(data)
				return err
			}

			res := c.Response()
			origWriter := res.Writer
			buf := newBodyBuffer(origWriter)
			res.Writer = buf

			if err := next(c); err != nil {
				res.Writer = origWriter
				return err
			}
			res.Writer = origWriter

			if buf.statusCode < 400 {
				store.Set(key, buf.buf.Bytes(), ttl)
			}
			res.Header().Set("X-Cache", "MISS")
			return buf.flush()
		}
	}
}

// invalidateOnWrite runs the write and, when it succeeds, clears the cached
// reads it made stale.
func invalidateOnWrite(c echo.Context, next echo.HandlerFunc, store CacheStore) error {
	res := c.Response()
	origWriter := res.Writer
	buf := newBodyBuffer(origWriter)
	res.Writer = buf

	if err := next(c); err != nil {
		res.Writer = origWriter
		return err
	}
	res.Writer = origWriter

	if buf.statusCode < 400 {
		for _, prefix := range writeInvalidations(c.Request().URL.Path) {
			store.DeletePrefix(prefix)
		}
	}
	return buf.flush()
}

// writeInvalidations lists the cached-read prefixes a successful write makes
// stale. Conversation and assessment writes feed the analytics aggregates
// and the per-user summaries, so those go stale too.
func writeInvalidations(path string) []string {
	resource := extractResourceType(path)
	switch resource {
	case "conversations", "assessments":
		return []string{"/api/" + resource, "/api/analytics", "/api/users"}
	case "unknown":
		return nil
	default:
		return []string{"/api/" + resource}
	}
}

// etagFor returns a weak ETag over the body.
func etagFor(body []byte) string {
	hash := md5.Sum(body)
	return fmt.Sprintf(`W/"%x"`, hash)
}

// cacheKey leads with the path so DeletePrefix can sweep a whole resource
// across users; the user id keeps entries isolated per caller.
func cacheKey(userID, path, query, accept string) string {
	return path + "?" + query + "|" + userID + "|" + accept
}

// pathExcluded reports whether path is in the exclusion list.
func pathExcluded(path string, excludes []string) bool {
	for _, ex := range excludes {
		if path == ex {
			return true
		}
	}
	return false
}

func cacheControlValue(config CacheConfig) string {
	var parts []string
	if config.NoStore {
		parts = append(parts, "no-store")
	}
	if config.Private {
		parts = append(parts, "private")
	} else {
		parts = append(parts, "public")
	}
	parts = append(parts, fmt.Sprintf("max-age=%d", config.MaxAge))
	return strings.Join(parts, ", ")
}

// etagMatch reports whether an If-None-Match/If-Match header value matches
// the ETag, honoring comma-separated lists, the "*" wildcard, and weak
// comparison.
func etagMatch(headerVal, etag string) bool {
	headerVal = strings.TrimSpace(headerVal)
	if headerVal == "*" {
		return true
	}
	for _, candidate := range strings.Split(headerVal, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == etag || weakValue(candidate) == weakValue(etag) {
			return true
		}
	}
	return false
}

// weakValue strips the W/ marker so weak and strong forms compare equal.
func weakValue(etag string) string {
	return strings.TrimPrefix(etag, "W/")
}
