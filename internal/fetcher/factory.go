// internal/fetcher/factory.go
package fetcher

import (
	"price-peak-monitor/internal/config"
)

// NewFetcher создает фетчер страницы по конфигурации
func NewFetcher(cfg *config.Config) PageFetcher {
	return NewCollyFetcher(cfg.Monitor.UserAgent)
}
