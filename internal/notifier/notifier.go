// internal/notifier/notifier.go
package notifier

import (
	"context"
	"fmt"
)

// Notifier канал доставки текстовых оповещений.
// Доставка best-effort: ошибка возвращается, но не прерывает цикл мониторинга.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, message string) error
}

// DeliveryError ошибка доставки оповещения в конкретный канал
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
