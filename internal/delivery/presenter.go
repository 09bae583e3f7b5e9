package delivery

import "context"

// TapMetadata routes a notification tap to an in-app destination.
type TapMetadata struct {
	Screen string `json:"screen"`
	Action string `json:"action"`
}

// Request is the system notification payload handed to the delivery channel.
type Request struct {
	ID         int         `json:"id"`
	Title      string      `json:"title"`
	Message    string      `json:"message"`
	ChannelID  string      `json:"channelId"`
	Tap        TapMetadata `json:"tapMetadata"`
	Sound      bool        `json:"sound"`
	Vibrate    bool        `json:"vibrate"`
	AutoCancel bool        `json:"autoCancel"`
}

// Presenter shows or forwards a system notification. Implementations must not
// retry internally; the poller treats failures as fire-and-forget.
type Presenter interface {
	Present(ctx context.Context, req Request) error
}
