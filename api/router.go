package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fashionshop/storefront-notifier/api/handlers"
	"github.com/fashionshop/storefront-notifier/api/middleware"
	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/lifecycle"
	"github.com/fashionshop/storefront-notifier/internal/notifications"
	"github.com/fashionshop/storefront-notifier/pkg/config"
	"github.com/fashionshop/storefront-notifier/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type lifecycleMonitor interface {
	Transition(ctx context.Context, phase lifecycle.Phase) error
	SetPendingNavigation(tap delivery.TapMetadata)
}

// NewRouter assembles the HTTP surface: the notification log for the UI
// layer, the lifecycle webhook for the host runtime, and health/metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	kvP pinger,
	notificationsService notifications.Service,
	monitor lifecycleMonitor,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", handlers.HealthLive(cfg))
	r.Get("/readyz", handlers.HealthReady(cfg, logg, dbP, kvP))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/notifications", func(r chi.Router) {
		r.Get("/", handlers.ListNotifications(notificationsService, logg))
		r.Get("/unread-count", handlers.UnreadCount(notificationsService, logg))
		r.Post("/read-all", handlers.MarkAllNotificationsRead(notificationsService, logg))
		r.Post("/reset", handlers.ResetNotifications(notificationsService, logg))
		r.Post("/{id}/read", handlers.MarkNotificationRead(notificationsService, logg))
		r.Delete("/{id}", handlers.DeleteNotification(notificationsService, logg))
		r.Delete("/", handlers.DeleteAllNotifications(notificationsService, logg))
	})

	r.Route("/v1/lifecycle", func(r chi.Router) {
		r.Post("/", handlers.ReportTransition(monitor, logg))
		r.Post("/navigation", handlers.QueueNavigation(monitor, logg))
	})

	return r
}
