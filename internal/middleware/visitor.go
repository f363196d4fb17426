package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BruksfildServices01/medease/internal/store"
)

const (
	ContextVisitorKey = "visitorKey"
	ContextStore      = "store"
)

// StoreSource hands out the store of a visitor; *store.Registry in
// production.
type StoreSource interface {
	Get(key string) *store.Store
}

type VisitorConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// VisitorMiddleware identifies the browser by a random cookie and puts its
// store in the context.
func VisitorMiddleware(stores StoreSource, cfg VisitorConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(key) != nil {
			key = uuid.NewString()
		}

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    key,
			Path:     "/",
			MaxAge:   int(cfg.TTL.Seconds()),
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})

		s := stores.Get(key)
		if s == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		c.Set(ContextVisitorKey, key)
		c.Set(ContextStore, s)
		c.Next()
	}
}

func VisitorKey(c *gin.Context) string {
	return c.GetString(ContextVisitorKey)
}

// StoreFrom returns the visitor's store, or nil outside VisitorMiddleware.
func StoreFrom(c *gin.Context) *store.Store {
	v, ok := c.Get(ContextStore)
	if !ok {
		return nil
	}
	s, _ := v.(*store.Store)
	return s
}
