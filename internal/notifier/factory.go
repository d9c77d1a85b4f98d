// internal/notifier/factory.go
package notifier

import (
	"price-peak-monitor/internal/config"
	"price-peak-monitor/pkg/logger"
)

// NewFromConfig собирает каналы оповещений из конфигурации.
// Консоль подключена всегда.
func NewFromConfig(cfg *config.Config) *CompositeNotificationService {
	service := NewCompositeNotificationService(NewConsoleNotifier())

	if cfg.Telegram.Enabled {
		service.AddNotifier(NewTelegramNotifier(cfg.Telegram, cfg.Monitor.NotifyTimeout))
		logger.Info("📨 Telegram alerts enabled for chat %s", cfg.Telegram.ChatID)
	}
	if cfg.Email.Enabled {
		service.AddNotifier(NewEmailNotifier(cfg.Email))
		logger.Info("📧 Email alerts enabled for %s", cfg.Email.To)
	}

	return service
}
