package domain

import "time"

// PeriodFormat - календарный месяц, к которому привязан счетчик
const PeriodFormat = "2006-01"

// QuotaState - состояние квоты одного сервиса.
// Мутируется только леджером под его локом, персистится после каждой мутации.
type QuotaState struct {
	Service     string      `json:"service"`
	Period      string      `json:"period"` // формат PeriodFormat
	MonthlyUsed int         `json:"monthly_used"`
	LastRequest time.Time   `json:"last_request"`
	History     []time.Time `json:"history"` // скользящее окно недавних запросов
}

type UsageStats struct {
	Service      string
	MonthlyUsed  int
	MonthlyLimit int
	Remaining    int
	Last24h      int
	Last7d       int
	ResetDate    time.Time
	AvgPerDay    float64
}
