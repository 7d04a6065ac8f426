package v1

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/vedyxlabs/vedyx/auth"
	"github.com/vedyxlabs/vedyx/store"
)

const userContextKey = "vedyx-user"

// authMiddleware validates the Bearer access token and loads the user onto
// the request context.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return errorJSON(c, http.StatusUnauthorized, "missing access token")
		}

		claims, err := auth.ValidateAccessToken(token, s.Secret)
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, "invalid access token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, "invalid access token")
		}

		user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{ID: &userID})
		if err != nil {
			return errorJSON(c, http.StatusInternalServerError, "failed to load user")
		}
		if user == nil {
			return errorJSON(c, http.StatusUnauthorized, "user not found")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func currentUser(c echo.Context) *store.User {
	user, _ := c.Get(userContextKey).(*store.User)
	return user
}

// visitorLimiter tracks a token-bucket limiter per client address. Entries
// idle longer than ttl are evicted on the next lookup, so the map stays
// bounded by the set of recently active clients.
type visitorLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitorEntry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type visitorEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newVisitorLimiter(limit rate.Limit, burst int, ttl time.Duration) *visitorLimiter {
	return &visitorLimiter{
		visitors: make(map[string]*visitorEntry),
		limit:    limit,
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (v *visitorLimiter) allow(ip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastPrune) > v.ttl {
		v.pruneLocked(now)
	}

	entry, ok := v.visitors[ip]
	if !ok {
		entry = &visitorEntry{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.visitors[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

func (v *visitorLimiter) pruneLocked(now time.Time) {
	for ip, entry := range v.visitors {
		if now.Sub(entry.lastSeen) > v.ttl {
			delete(v.visitors, ip)
		}
	}
	v.lastPrune = now
}

// rateLimitMiddleware bounds per-client request rates on the relay and auth
// endpoints.
func (s *APIV1Service) rateLimitMiddleware() echo.MiddlewareFunc {
	visitors := newVisitorLimiter(rate.Limit(2), 10, 15*time.Minute)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !visitors.allow(c.RealIP()) {
				return errorJSON(c, http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
