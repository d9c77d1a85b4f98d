// internal/extractor/extractor.go
package extractor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTitleSelector = "h1.ui-pdp-title"
	DefaultPriceSelector = "span.andes-money-amount__fraction"

	thousandsSeparator = "."
)

// Имена полей в ошибках
const (
	FieldTitle            = "product_name"
	FieldOldPrice         = "old_price"
	FieldNewPrice         = "new_price"
	FieldInstallmentPrice = "installment_price"
	FieldPrices           = "price_amounts"
)

// PriceFields результат разбора страницы. Цены в целых единицах валюты,
// перевод в центы выполняет вызывающая сторона.
type PriceFields struct {
	ProductName      string
	OldPrice         *int64 // nil - скидки нет
	NewPrice         int64
	InstallmentPrice int64
}

// Extractor чистая функция разбора документа, без I/O и повторов
type Extractor struct {
	titleSelector    string
	priceSelector    string
	optionalDiscount bool
}

// Option настройка экстрактора
type Option func(*Extractor)

// WithSelectors переопределяет CSS-селекторы заголовка и сумм
func WithSelectors(title, price string) Option {
	return func(e *Extractor) {
		if title != "" {
			e.titleSelector = title
		}
		if price != "" {
			e.priceSelector = price
		}
	}
}

// WithOptionalDiscount разрешает страницу ровно с двумя суммами:
// тогда скидка считается неактивной и OldPrice остается nil
func WithOptionalDiscount() Option {
	return func(e *Extractor) {
		e.optionalDiscount = true
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		titleSelector: DefaultTitleSelector,
		priceSelector: DefaultPriceSelector,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract разбирает HTML-документ товара
func (e *Extractor) Extract(document string) (PriceFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return PriceFields{}, fmt.Errorf("parse document: %w", err)
	}

	title := doc.Find(e.titleSelector).First()
	if title.Length() == 0 {
		return PriceFields{}, missing(FieldTitle)
	}
	name := strings.TrimSpace(title.Text())
	if name == "" {
		return PriceFields{}, missing(FieldTitle)
	}

	var amounts []string
	doc.Find(e.priceSelector).Each(func(_ int, s *goquery.Selection) {
		amounts = append(amounts, strings.TrimSpace(s.Text()))
	})

	fields := PriceFields{ProductName: name}

	switch {
	case len(amounts) >= 3:
		old, err := ParseAmount(FieldOldPrice, amounts[0])
		if err != nil {
			return PriceFields{}, err
		}
		fields.OldPrice = &old
		amounts = amounts[1:]
	case len(amounts) == 2 && e.optionalDiscount:
		// скидки нет: на странице только текущая цена и рассрочка
	default:
		return PriceFields{}, missing(FieldPrices)
	}

	if fields.NewPrice, err = ParseAmount(FieldNewPrice, amounts[0]); err != nil {
		return PriceFields{}, err
	}
	if fields.InstallmentPrice, err = ParseAmount(FieldInstallmentPrice, amounts[1]); err != nil {
		return PriceFields{}, err
	}

	return fields, nil
}

// ParseAmount переводит "9.499" в 9499. Дробной части в источнике нет.
func ParseAmount(field, raw string) (int64, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(raw), thousandsSeparator, "")
	if digits == "" {
		return 0, malformed(field, raw)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, malformed(field, raw)
		}
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, malformed(field, raw)
	}
	return value, nil
}
