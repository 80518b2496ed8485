package httpapp

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cesargomez89/mediasync/internal/app"
	"github.com/cesargomez89/mediasync/internal/logger"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	Sync     *app.SyncService
	Search   *app.SearchService
	Stats    *app.StatsService
	List     *app.ListService
	Profile  *app.ProfileService
	Catalogs app.Catalogs
	DB       Pinger
	Logger   *logger.Logger
	now      func() time.Time
}

func NewHandler(sync *app.SyncService, search *app.SearchService, stats *app.StatsService,
	list *app.ListService, profile *app.ProfileService, catalogs app.Catalogs, db Pinger, log *logger.Logger,
) *Handler {
	return &Handler{
		Sync:     sync,
		Search:   search,
		Stats:    stats,
		List:     list,
		Profile:  profile,
		Catalogs: catalogs,
		DB:       db,
		Logger:   log.WithComponent("http"),
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Get("/search", h.SearchMedia)
		r.Get("/trending", h.Trending)
		r.Post("/sync/{provider}", h.SyncProvider)
		r.Get("/stats", h.GetStats)

		r.Get("/list", h.ListItems)
		r.Post("/list", h.AddItem)
		r.Patch("/list/{id}", h.UpdateItem)
		r.Delete("/list/{id}", h.DeleteItem)

		r.Get("/options", h.GetOptions)
		r.Put("/options", h.UpdateOptions)

		r.Get("/connections", h.ListConnections)
		r.Put("/connections/{provider}", h.Connect)
		r.Delete("/connections/{provider}", h.Disconnect)
	})
}
