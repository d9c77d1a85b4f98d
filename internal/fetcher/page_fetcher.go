// internal/fetcher/page_fetcher.go
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gocolly/colly"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var ErrEmptyURL = errors.New("empty url")

// CollyFetcher получает страницу через colly.Collector.
// Базовый коллектор клонируется на каждый запрос, чтобы колбэки не копились.
type CollyFetcher struct {
	base *colly.Collector
	now  func() time.Time
}

// NewCollyFetcher создает фетчер с заданным User-Agent
func NewCollyFetcher(userAgent string) *CollyFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &CollyFetcher{
		base: colly.NewCollector(
			colly.UserAgent(userAgent),
			colly.AllowURLRevisit(),
		),
		now: time.Now,
	}
}

// Get выполняет запрос с ограничением по времени. Отмена ctx прерывает
// ожидание сразу, сам запрос завершится не позже timeout.
func (f *CollyFetcher) Get(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	if url == "" {
		return Page{}, &TransportError{URL: url, Err: ErrEmptyURL}
	}
	if err := ctx.Err(); err != nil {
		return Page{}, &TransportError{URL: url, Err: err}
	}

	type result struct {
		page Page
		err  error
	}
	done := make(chan result, 1)

	c := f.base.Clone()
	c.SetRequestTimeout(timeout)

	go func() {
		var (
			page   Page
			status int
		)
		c.OnResponse(func(r *colly.Response) {
			page = Page{Status: r.StatusCode, Body: string(r.Body), FetchedAt: f.now()}
		})
		c.OnError(func(r *colly.Response, err error) {
			if r != nil {
				status = r.StatusCode
			}
		})

		if err := c.Visit(url); err != nil {
			done <- result{err: &TransportError{URL: url, Status: status, Err: err}}
			return
		}
		if page.Status < http.StatusOK || page.Status >= http.StatusMultipleChoices {
			done <- result{err: &TransportError{URL: url, Status: page.Status, Err: errors.New(http.StatusText(page.Status))}}
			return
		}
		done <- result{page: page}
	}()

	select {
	case res := <-done:
		return res.page, res.err
	case <-ctx.Done():
		return Page{}, &TransportError{URL: url, Err: ctx.Err()}
	}
}
