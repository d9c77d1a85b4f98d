// internal/notifier/console_notifier.go
package notifier

import (
	"context"

	"price-peak-monitor/pkg/logger"
)

// ConsoleNotifier пишет оповещения в лог, всегда доступен
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Name() string {
	return "console"
}

func (c *ConsoleNotifier) Notify(ctx context.Context, message string) error {
	logger.Info("🔔 %s", message)
	return nil
}
