package plugin

import (
	"context"
	"log/slog"
)

// Interaction receives progress updates from a running plugin. total of zero
// means the amount of work is not known yet.
type Interaction interface {
	SetProgress(current, total int, message string, indeterminate bool)
}

// InteractionFunc adapts a function to Interaction.
type InteractionFunc func(current, total int, message string, indeterminate bool)

// SetProgress calls f.
func (f InteractionFunc) SetProgress(current, total int, message string, indeterminate bool) {
	f(current, total, message, indeterminate)
}

type interactionKey struct{}

// WithInteraction returns a context carrying i.
func WithInteraction(ctx context.Context, i Interaction) context.Context {
	return context.WithValue(ctx, interactionKey{}, i)
}

// InteractionFrom returns the Interaction carried by ctx, or one that drops
// every update.
func InteractionFrom(ctx context.Context) Interaction {
	if i, ok := ctx.Value(interactionKey{}).(Interaction); ok && i != nil {
		return i
	}
	return noInteraction{}
}

type noInteraction struct{}

func (noInteraction) SetProgress(int, int, string, bool) {}

// LogInteraction writes progress updates to logger. Intermediate steps are
// logged at Debug level, the first and last at Info.
func LogInteraction(logger *slog.Logger, pluginName string) Interaction {
	return InteractionFunc(func(current, total int, message string, indeterminate bool) {
		level := slog.LevelDebug
		if indeterminate || current >= total {
			level = slog.LevelInfo
		}
		logger.Log(context.Background(), level, message,
			"plugin", pluginName,
			"current", current,
			"total", total,
			"indeterminate", indeterminate)
	})
}

// Progress is one recorded progress update.
type Progress struct {
	Current       int    `json:"current"`
	Total         int    `json:"total"`
	Message       string `json:"message"`
	Indeterminate bool   `json:"indeterminate"`
}

// Recorder is an Interaction that keeps every update.
type Recorder struct {
	Updates []Progress
}

// SetProgress implements Interaction.
func (r *Recorder) SetProgress(current, total int, message string, indeterminate bool) {
	r.Updates = append(r.Updates, Progress{Current: current, Total: total, Message: message, Indeterminate: indeterminate})
}
