// internal/monitor/types.go
package monitor

import (
	"price-peak-monitor/internal/extractor"
	"price-peak-monitor/pkg/logger"
)

// State состояние цикла мониторинга
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateComparing  State = "comparing"
	StatePersisting State = "persisting"
	StateNotifying  State = "notifying"
	StateSleeping   State = "sleeping"
	StateStopped    State = "stopped"
)

// Outcome итог одного цикла
type Outcome string

const (
	OutcomeNewMaximum      Outcome = "new_maximum"
	OutcomeStanding        Outcome = "standing"
	OutcomeTransportError  Outcome = "transport_error"
	OutcomeExtractionError Outcome = "extraction_error"
	OutcomeStoreError      Outcome = "store_error"
	OutcomeCanceled        Outcome = "canceled"
)

// LogLevel уровень строки итога цикла. Сетевой сбой обычно временный,
// а сбой извлечения значит, что изменилась верстка страницы.
func (o Outcome) LogLevel() string {
	switch o {
	case OutcomeTransportError:
		return logger.LevelWarn
	case OutcomeExtractionError, OutcomeStoreError:
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// Extractor разбор документа страницы в поля цены
type Extractor interface {
	Extract(document string) (extractor.PriceFields, error)
}
