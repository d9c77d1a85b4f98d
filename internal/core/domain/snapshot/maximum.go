// internal/core/domain/snapshot/maximum.go
package snapshot

// Exceeds сообщает, устанавливает ли цена новый максимум.
// При равенстве максимум не меняется: сохраняется первое достижение.
func (m RunningMaximum) Exceeds(price int64) bool {
	return price > m.MaxPrice
}

// Observe обновляет максимум очередным снапшотом, снапшоты должны
// поступать в порядке CapturedAt. known=false означает пустую историю.
// Второе значение сообщает, установлен ли новый максимум.
func (m RunningMaximum) Observe(s PriceSnapshot, known bool) (RunningMaximum, bool) {
	if !known || m.Exceeds(s.NewPrice) {
		return RunningMaximum{MaxPrice: s.NewPrice, MaxPriceAt: s.CapturedAt}, true
	}
	return m, false
}

// Maximum вычисляет максимум полным проходом по истории.
// Возвращает false только для пустой истории.
func Maximum(history []PriceSnapshot) (RunningMaximum, bool) {
	var (
		max   RunningMaximum
		found bool
	)
	for _, s := range history {
		switch {
		case !found || s.NewPrice > max.MaxPrice:
			max = RunningMaximum{MaxPrice: s.NewPrice, MaxPriceAt: s.CapturedAt}
			found = true
		case s.NewPrice == max.MaxPrice && s.CapturedAt.Before(max.MaxPriceAt):
			max.MaxPriceAt = s.CapturedAt
		}
	}
	return max, found
}
