package idempotency

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/backtolife/recovery/internal/platform/auth"
)

const (
	Header         = "Idempotency-Key"
	ReplayedHeader = "X-Idempotency-Replayed"
	maxKeyLength   = 255
)

// Middleware replays the stored response when a POST, PUT or PATCH repeats
// an Idempotency-Key. Keys are scoped to the authenticated user. Reusing a
// key for a different method or path is rejected with 422. Server errors are
// not stored so the client can retry them. Store failures are logged and the
// request proceeds without replay protection.
func Middleware(store Store, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			method := req.Method
			if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
				return next(c)
			}
			key := req.Header.Get(Header)
			if key == "" {
				return next(c)
			}
			if len(key) > maxKeyLength {
				return echo.NewHTTPError(http.StatusBadRequest, "idempotency key too long")
			}

			ctx := req.Context()
			scoped := auth.UserIDFromContext(ctx) + ":" + key
			path := req.URL.Path

			cached, ok, err := store.Get(ctx, scoped)
			if err != nil {
				logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
				return next(c)
			}
			if ok {
				if cached.Method != method || cached.Path != path {
					return echo.NewHTTPError(http.StatusUnprocessableEntity, "idempotency key was already used for a different operation")
				}
				resp := c.Response()
				for k, vals := range cached.Headers {
					for _, v := range vals {
						resp.Header().Add(k, v)
					}
				}
				resp.Header().Set(ReplayedHeader, "true")
				resp.WriteHeader(cached.StatusCode)
				_, err := resp.Write(cached.Body)
				return err
			}

			origWriter := c.Response().Writer
			rec := &recorder{ResponseWriter: origWriter, headers: make(http.Header), statusCode: http.StatusOK}
			c.Response().Writer = rec
			err = next(c)
			c.Response().Writer = origWriter

			if err != nil {
				return err
			}

			if rec.statusCode < http.StatusInternalServerError {
				entry := &Entry{
					Method:     method,
					Path:       path,
					StatusCode: rec.statusCode,
					Headers:    rec.headers.Clone(),
					Body:       rec.body.Bytes(),
				}
				if err := store.Set(ctx, scoped, entry); err != nil {
					logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency store failed")
				}
			}

			for k, vals := range rec.headers {
				for _, v := range vals {
					origWriter.Header().Add(k, v)
				}
			}
			origWriter.WriteHeader(rec.statusCode)
			_, err = origWriter.Write(rec.body.Bytes())
			return err
		}
	}
}

// recorder buffers a handler's response so it can be stored before it is
// sent.
type recorder struct {
	http.ResponseWriter
	headers    http.Header
	body       bytes.Buffer
	statusCode int
	wroteHead  bool
}

func (r *recorder) Header() http.Header {
	return r.headers
}

func (r *recorder) WriteHeader(code int) {
	if r.wroteHead {
		return
	}
	r.statusCode = code
	r.wroteHead = true
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHead {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}
