package handlers

import (
	"context"
	"net/http"

	"github.com/fashionshop/storefront-notifier/api/responses"
	"github.com/fashionshop/storefront-notifier/api/validators"
	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/lifecycle"
	pkgerrors "github.com/fashionshop/storefront-notifier/pkg/errors"
	"github.com/fashionshop/storefront-notifier/pkg/logger"
)

// lifecycleReporter is the slice of internal/lifecycle.Monitor the API feeds.
type lifecycleReporter interface {
	Transition(ctx context.Context, phase lifecycle.Phase) error
	SetPendingNavigation(tap delivery.TapMetadata)
}

type transitionRequest struct {
	State string `json:"state" validate:"required,oneof=foreground background"`
}

// ReportTransition lets the host runtime report a foreground/background change.
func ReportTransition(monitor lifecycleReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := monitor.Transition(r.Context(), lifecycle.Phase(req.State)); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lifecycle state"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"state": req.State})
	}
}

type navigationRequest struct {
	Screen string `json:"screen" validate:"required"`
	Action string `json:"action" validate:"required"`
}

// QueueNavigation stores the tap intent of a notification opened while the app
// was not foregrounded. Replayed once on the next foreground transition.
func QueueNavigation(monitor lifecycleReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req navigationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		monitor.SetPendingNavigation(delivery.TapMetadata{Screen: req.Screen, Action: req.Action})
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}
