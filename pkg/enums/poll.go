package enums

import "fmt"

// PollMode distinguishes which path triggered a poll. Background polls defer
// to foreground polls when both are armed.
type PollMode string

const (
	PollModeForeground PollMode = "foreground"
	PollModeBackground PollMode = "background"
)

// PollKind labels the two independent polling loops.
type PollKind string

const (
	PollKindProduct PollKind = "product"
	PollKindOrder   PollKind = "order"
)

// ParsePollMode converts the raw string to PollMode.
func ParsePollMode(value string) (PollMode, error) {
	switch PollMode(value) {
	case PollModeForeground, PollModeBackground:
		return PollMode(value), nil
	}
	return "", fmt.Errorf("invalid poll mode %q", value)
}
