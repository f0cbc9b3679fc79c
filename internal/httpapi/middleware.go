package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JorgeRiveraMancilla/go-store-api/pkg/metrics"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	buyerIDKey contextKey = "buyer_id"

	buyerCookieName = "buyerId"
	userIDHeader    = "X-User-ID"
)

// BuyerIdentityMiddleware resolves the buyer key for the request: the
// authenticated user id when present (authentication itself is handled
// upstream of this service), otherwise the anonymous buyerId cookie.
func BuyerIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if userID := r.Header.Get(userIDHeader); userID != "" {
			ctx = context.WithValue(ctx, userIDKey, userID)
			ctx = context.WithValue(ctx, buyerIDKey, userID)
		} else if cookie, err := r.Cookie(buyerCookieName); err == nil && cookie.Value != "" {
			ctx = context.WithValue(ctx, buyerIDKey, cookie.Value)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MetricsMiddleware records request counts and latency per route pattern.
func MetricsMiddleware(m *metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			// The pattern is only known after routing, and it keeps label
			// cardinality bounded where raw paths with ids would not.
			handler := r.Method + " " + routePattern(r)
			m.Requests.WithLabelValues(handler, strconv.Itoa(sw.status)).Inc()
			m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func buyerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(buyerIDKey).(string); ok {
		return v
	}
	return ""
}

func userIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// ensureBuyerID returns the request's buyer key, minting a new anonymous
// token cookie when the request carries none.
func ensureBuyerID(w http.ResponseWriter, r *http.Request) string {
	if id := buyerIDFromContext(r.Context()); id != "" {
		return id
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     buyerCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func clearBuyerCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    buyerCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
