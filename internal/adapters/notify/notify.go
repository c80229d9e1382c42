// Package notify delivers short user-facing notices, such as the one the Sync
// Agent raises after merging server quotes.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gen2brain/beeep"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const (
	defaultTitle   = "Quote Sync"
	maxMessageSize = 800
)

// LogNotifier writes notices to the logger. It is the default notifier for
// headless runs.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogNotifier{logger: logger}
}

// Notify logs the notice at info level.
func (n *LogNotifier) Notify(ctx context.Context, title, message string) error {
	title, message = normalize(title, message)

	logging.FromContextOr(ctx, n.logger).InfoContext(ctx, "notification",
		slog.String("title", title),
		slog.String("message", message),
	)

	return nil
}

// sendFunc shows one popup.
type sendFunc func(title, message string) error

func beeepSend(title, message string) error {
	return beeep.Notify(title, message, "")
}

// DesktopNotifier shows a desktop popup through beeep and mirrors the notice
// to the log. A popup failure is logged and returned; the log line is always
// written.
type DesktopNotifier struct {
	log  *LogNotifier
	send sendFunc
}

// NewDesktopNotifier creates a DesktopNotifier.
func NewDesktopNotifier(logger *slog.Logger) *DesktopNotifier {
	return &DesktopNotifier{log: NewLogNotifier(logger), send: beeepSend}
}

// Notify shows the popup.
func (n *DesktopNotifier) Notify(ctx context.Context, title, message string) error {
	title, message = normalize(title, message)

	_ = n.log.Notify(ctx, title, message)

	if err := n.send(title, message); err != nil {
		logging.FromContextOr(ctx, n.log.logger).WarnContext(ctx, "desktop notification failed",
			slog.Any("error", err))

		return err
	}

	return nil
}

// New returns a DesktopNotifier when desktop is set, otherwise a LogNotifier.
func New(desktop bool, logger *slog.Logger) ports.Notifier {
	if desktop {
		return NewDesktopNotifier(logger)
	}

	return NewLogNotifier(logger)
}

func normalize(title, message string) (string, string) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}

	message = strings.TrimSpace(message)
	if len(message) > maxMessageSize {
		message = message[:maxMessageSize] + "..."
	}

	return title, message
}
