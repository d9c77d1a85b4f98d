// internal/core/domain/snapshot/snapshot.go
package snapshot

import (
	"errors"
	"strings"
	"time"
)

// PriceSnapshot неизменяемое наблюдение цены товара.
// Все цены хранятся в минимальных единицах валюты (центах).
type PriceSnapshot struct {
	ID               int64     `db:"id" json:"id"`
	ProductName      string    `db:"product_name" json:"product_name"`
	OldPrice         *int64    `db:"old_price" json:"old_price,omitempty"` // nil - скидки нет
	NewPrice         int64     `db:"new_price" json:"new_price"`
	InstallmentPrice int64     `db:"installment_price" json:"installment_price"`
	CapturedAt       time.Time `db:"timestamp" json:"captured_at"`
}

// RunningMaximum производное значение: максимальная new_price по истории
type RunningMaximum struct {
	MaxPrice   int64     `json:"max_price"`
	MaxPriceAt time.Time `json:"max_price_at"`
}

var (
	ErrEmptyProductName = errors.New("product name is empty")
	ErrNegativePrice    = errors.New("price is negative")
)

// Validate проверяет инварианты снапшота перед записью
func (s PriceSnapshot) Validate() error {
	if strings.TrimSpace(s.ProductName) == "" {
		return ErrEmptyProductName
	}
	if s.NewPrice < 0 || s.InstallmentPrice < 0 {
		return ErrNegativePrice
	}
	if s.OldPrice != nil && *s.OldPrice < 0 {
		return ErrNegativePrice
	}
	return nil
}

// Int64 возвращает указатель на значение, удобно для OldPrice
func Int64(v int64) *int64 {
	return &v
}
