package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/campushq/event-service/pkg/response"
)

const (
	// HeaderIdempotencyKey is the client-supplied dedup key
	HeaderIdempotencyKey = "Idempotency-Key"

	idempotencyPrefix = "idempotency:"
	processingMarker  = "processing"
)

// IdempotencyConfig controls the dedup window for write requests
type IdempotencyConfig struct {
	// TTL is how long a completed response stays replayable
	TTL time.Duration
	// ProcessingTTL bounds how long a key is held while the first
	// request is still in flight
	ProcessingTTL time.Duration
	// SkipPaths are route prefixes exempt from idempotency handling
	SkipPaths []string
}

// DefaultIdempotencyConfig returns production defaults
func DefaultIdempotencyConfig() *IdempotencyConfig {
	return &IdempotencyConfig{
		TTL:           24 * time.Hour,
		ProcessingTTL: 60 * time.Second,
		SkipPaths:     []string{"/health", "/ready"},
	}
}

type cachedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
	RequestHash string `json:"request_hash"`
}

type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware deduplicates unsafe requests carrying an
// Idempotency-Key header. The first request executes and its response is
// cached; replays with the same key and payload get the cached response,
// replays with a different payload are rejected.
func IdempotencyMiddleware(rdb *goredis.Client, cfg *IdempotencyConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultIdempotencyConfig()
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		for _, p := range cfg.SkipPaths {
			if c.Request.URL.Path == p {
				c.Next()
				return
			}
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		userID := c.GetString(ContextKeyUserID)
		redisKey := idempotencyPrefix + userID + ":" + key

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "failed to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		reqHash := hashRequest(c.Request.Method, c.Request.URL.Path, userID, body)

		acquired, err := rdb.SetNX(ctx, redisKey, processingMarker, cfg.ProcessingTTL).Result()
		if err != nil {
			// Redis being down should not block writes, only dedup
			c.Next()
			return
		}

		if !acquired {
			stored, err := rdb.Get(ctx, redisKey).Result()
			if err != nil {
				c.Next()
				return
			}
			if stored == processingMarker {
				response.Error(c, http.StatusConflict, "REQUEST_IN_FLIGHT",
					"a request with this idempotency key is still being processed", "")
				c.Abort()
				return
			}
			var cached cachedResponse
			if err := json.Unmarshal([]byte(stored), &cached); err != nil {
				c.Next()
				return
			}
			if cached.RequestHash != reqHash {
				response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED",
					"idempotency key was already used with a different request", "")
				c.Abort()
				return
			}
			c.Header("X-Idempotent-Replay", "true")
			c.Data(cached.Status, cached.ContentType, []byte(cached.Body))
			c.Abort()
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			// Let the client retry server failures with the same key
			_ = rdb.Del(ctx, redisKey).Err()
			return
		}

		cached := cachedResponse{
			Status:      status,
			Body:        writer.body.String(),
			ContentType: c.Writer.Header().Get("Content-Type"),
			RequestHash: reqHash,
		}
		payload, err := json.Marshal(cached)
		if err != nil {
			_ = rdb.Del(ctx, redisKey).Err()
			return
		}
		_ = rdb.Set(ctx, redisKey, payload, cfg.TTL).Err()
	}
}

func hashRequest(method, path, userID string, body []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", method, path, userID)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
