package delivery

import (
	"context"
	"errors"

	"github.com/fashionshop/storefront-notifier/pkg/logger"
)

// LogPresenter writes push requests to the log instead of a real channel.
// Used in dev and as the default delivery mode.
type LogPresenter struct {
	logg *logger.Logger
}

// NewLogPresenter builds the dev presenter.
func NewLogPresenter(logg *logger.Logger) (*LogPresenter, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &LogPresenter{logg: logg}, nil
}

// Present logs the would-be system notification.
func (p *LogPresenter) Present(ctx context.Context, req Request) error {
	ctx = p.logg.WithFields(ctx, map[string]any{
		"notification_id": req.ID,
		"title":           req.Title,
		"channel_id":      req.ChannelID,
		"screen":          req.Tap.Screen,
	})
	p.logg.Info(ctx, "system notification (log delivery)")
	return nil
}
