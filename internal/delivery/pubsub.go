package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	pkgerrors "github.com/fashionshop/storefront-notifier/pkg/errors"
	"github.com/fashionshop/storefront-notifier/pkg/logger"
)

// publisher is the slice of pkg/pubsub.Publisher the presenter needs.
type publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

// PubSubPresenter publishes push requests to the mobile push-gateway topic.
// The host app subscribes to the topic and presents the system notification.
type PubSubPresenter struct {
	pub  publisher
	logg *logger.Logger
}

// NewPubSubPresenter wires the presenter to an initialized publisher.
func NewPubSubPresenter(pub publisher, logg *logger.Logger) (*PubSubPresenter, error) {
	if pub == nil {
		return nil, errors.New("publisher required")
	}
	return &PubSubPresenter{pub: pub, logg: logg}, nil
}

// Present serializes the request and publishes it. Failures come back as
// delivery-coded errors so the poller can log without rolling anything back.
func (p *PubSubPresenter) Present(ctx context.Context, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "encoding push request")
	}
	attrs := map[string]string{
		"channel_id":      req.ChannelID,
		"notification_id": strconv.Itoa(req.ID),
	}
	if err := p.pub.Publish(ctx, data, attrs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "publishing push request")
	}
	if p.logg != nil {
		p.logg.Info(p.logg.WithField(ctx, "notification_id", req.ID), "push request published")
	}
	return nil
}
