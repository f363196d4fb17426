package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/medease/internal/middleware"
	"github.com/BruksfildServices01/medease/internal/store"
)

// mustStore panics when the route is not behind VisitorMiddleware; gin's
// recovery turns that into a 500.
func mustStore(c *gin.Context) *store.Store {
	s := middleware.StoreFrom(c)
	if s == nil {
		panic("handlers: visitor store missing from request context")
	}
	return s
}

// waitReady gives a new visitor's session check a moment to finish so the
// first page is rarely the loading view.
func waitReady(c *gin.Context, s *store.Store, wait time.Duration) {
	if wait <= 0 {
		return
	}
	t := time.NewTimer(wait)
	defer t.Stop()

	select {
	case <-s.Ready():
	case <-t.C:
	case <-c.Request.Context().Done():
	}
}
