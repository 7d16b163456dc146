package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"logos-backend/internal/scheduler"
	"logos-backend/internal/store"
)

// Handler serves the internal status endpoints.
type Handler struct {
	store *store.Store
	sched *scheduler.Scheduler
}

func NewHandler(st *store.Store, sched *scheduler.Scheduler) *Handler {
	return &Handler{store: st, sched: sched}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/healthz", h.health)
	router.GET("/stats", h.stats)
}

// NewRouter builds the gin engine for the ops server.
func NewRouter(st *store.Store, sched *scheduler.Scheduler, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	NewHandler(st, sched).RegisterRoutes(router.Group("/"))
	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) stats(c *gin.Context) {
	st := h.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"users":          st.Users,
		"mimics":         st.Mimics,
		"events":         st.Events,
		"pending_timers": h.sched.Armed(),
	})
}
