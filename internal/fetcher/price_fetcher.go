// internal/fetcher/price_fetcher.go
package fetcher

import (
	"context"
	"fmt"
	"time"
)

// Page сырой ответ целевой страницы
type Page struct {
	Status    int
	Body      string
	FetchedAt time.Time
}

// PageFetcher внешняя возможность "получить страницу по URL"
type PageFetcher interface {
	Get(ctx context.Context, url string, timeout time.Duration) (Page, error)
}

// TransportError сеть, таймаут или не-2xx статус.
// Цикл с такой ошибкой пропускается без повтора.
type TransportError struct {
	URL    string
	Status int // 0, если ответа не было
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
