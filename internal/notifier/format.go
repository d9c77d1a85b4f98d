// internal/notifier/format.go
package notifier

import (
	"fmt"
	"strings"
	"time"

	"price-peak-monitor/internal/core/domain/snapshot"

	"github.com/shopspring/decimal"
)

const DefaultCurrencySymbol = "R$"

// FormatPrice форматирует цену в центах: 829900 -> "R$ 8.299,00"
func FormatPrice(cents int64, symbol string) string {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}

	amount := decimal.New(cents, -2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	return fmt.Sprintf("%s %s%s,%s", symbol, sign, groupThousands(whole), frac)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// NewMaximumMessage текст оповещения о новом максимуме
func NewMaximumMessage(product string, cents int64, symbol string) string {
	if product == "" {
		return fmt.Sprintf("Novo maior preço: %s", FormatPrice(cents, symbol))
	}
	return fmt.Sprintf("Novo maior preço: %s\n%s", FormatPrice(cents, symbol), product)
}

// StandingMaximumMessage текст о текущем зарегистрированном максимуме
func StandingMaximumMessage(max snapshot.RunningMaximum, symbol string) string {
	return fmt.Sprintf("O maior preço registrado é %s em %s",
		FormatPrice(max.MaxPrice, symbol),
		max.MaxPriceAt.UTC().Format(time.DateTime))
}
