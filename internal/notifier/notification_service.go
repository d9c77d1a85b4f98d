// internal/notifier/notification_service.go
package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"price-peak-monitor/pkg/logger"
)

// NotificationStats статистика отправок
type NotificationStats struct {
	TotalSent    int       `json:"total_sent"`
	Successful   int       `json:"successful"`
	Failed       int       `json:"failed"`
	LastSentTime time.Time `json:"last_sent_time"`
}

// CompositeNotificationService рассылает сообщение во все каналы
type CompositeNotificationService struct {
	notifiers []Notifier
	mu        sync.RWMutex
	stats     NotificationStats
}

// NewCompositeNotificationService создает композитный сервис
func NewCompositeNotificationService(notifiers ...Notifier) *CompositeNotificationService {
	return &CompositeNotificationService{notifiers: notifiers}
}

func (c *CompositeNotificationService) Name() string {
	return "composite"
}

// Notify отправляет сообщение через все каналы. Ошибка одного канала не
// мешает остальным; все ошибки доставки объединяются через errors.Join.
func (c *CompositeNotificationService) Notify(ctx context.Context, message string) error {
	c.mu.RLock()
	notifiers := append([]Notifier(nil), c.notifiers...)
	c.mu.RUnlock()

	if len(notifiers) == 0 {
		return nil
	}

	var errs []error
	for _, notifier := range notifiers {
		if err := notifier.Notify(ctx, message); err != nil {
			logger.Warn("❌ Delivery via %s failed: %v", notifier.Name(), err)

			var deliveryErr *DeliveryError
			if !errors.As(err, &deliveryErr) {
				err = &DeliveryError{Channel: notifier.Name(), Err: err}
			}
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	c.stats.TotalSent++
	if len(errs) == 0 {
		c.stats.Successful++
	} else {
		c.stats.Failed++
	}
	c.stats.LastSentTime = time.Now()
	c.mu.Unlock()

	return errors.Join(errs...)
}

// GetStats возвращает копию статистики
func (c *CompositeNotificationService) GetStats() NotificationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Channels имена подключенных каналов
func (c *CompositeNotificationService) Channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.notifiers))
	for _, notifier := range c.notifiers {
		names = append(names, notifier.Name())
	}
	return names
}

// AddNotifier добавляет канал
func (c *CompositeNotificationService) AddNotifier(notifier Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifiers = append(c.notifiers, notifier)
}
