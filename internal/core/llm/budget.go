package llm

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Budget alert thresholds, as fractions of the daily limit.
const (
	BudgetThresholdWarning  = 0.8
	BudgetThresholdCritical = 1.0
)

// Alert level names.
const (
	BudgetAlertWarning  = "warning"
	BudgetAlertCritical = "critical"
)

// dateFormatYMD keys the daily usage window.
const dateFormatYMD = "2006-01-02"

// BudgetAlert is fired when daily token usage crosses a threshold.
type BudgetAlert struct {
	Level       string
	DailyTokens int64
	BudgetLimit int64
	Percentage  float64
	Timestamp   time.Time
}

// BudgetTracker counts tokens per UTC day against a configurable limit.
// A limit of zero disables alerting but still counts.
type BudgetTracker struct {
	mu            sync.Mutex
	dailyTokens   int64
	dailyLimit    int64
	lastResetDate string
	warningFired  bool
	criticalFired bool
	alertCallback func(alert BudgetAlert)
	logger        *zerolog.Logger
}

// NewBudgetTracker creates a budget tracker.
func NewBudgetTracker(dailyLimit int64, logger *zerolog.Logger) *BudgetTracker {
	return &BudgetTracker{
		dailyLimit:    dailyLimit,
		lastResetDate: time.Now().UTC().Format(dateFormatYMD),
		logger:        logger,
	}
}

// SetAlertCallback sets the callback invoked on threshold crossings.
func (bt *BudgetTracker) SetAlertCallback(callback func(alert BudgetAlert)) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	bt.alertCallback = callback
}

// SetDailyLimit updates the daily token budget limit.
func (bt *BudgetTracker) SetDailyLimit(limit int64) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	bt.dailyLimit = limit
}

// RecordTokens adds tokens to the daily count and fires threshold alerts.
// Each threshold fires at most once per day.
func (bt *BudgetTracker) RecordTokens(tokens int) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	bt.resetIfNewDay()

	bt.dailyTokens += int64(tokens)

	if bt.dailyLimit <= 0 || bt.alertCallback == nil {
		return
	}

	percentage := float64(bt.dailyTokens) / float64(bt.dailyLimit)

	switch {
	case !bt.criticalFired && percentage >= BudgetThresholdCritical:
		bt.criticalFired = true
		bt.fireAlert(BudgetAlertCritical, percentage)
	case !bt.warningFired && percentage >= BudgetThresholdWarning:
		bt.warningFired = true
		bt.fireAlert(BudgetAlertWarning, percentage)
	}
}

// GetStatus returns the current usage, limit, and usage fraction.
func (bt *BudgetTracker) GetStatus() (dailyTokens, dailyLimit int64, percentage float64) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	bt.resetIfNewDay()

	dailyTokens = bt.dailyTokens
	dailyLimit = bt.dailyLimit

	if dailyLimit > 0 {
		percentage = float64(dailyTokens) / float64(dailyLimit)
	}

	return dailyTokens, dailyLimit, percentage
}

// fireAlert sends an alert through the callback. The callback runs in its
// own goroutine so recording never blocks on a slow consumer.
func (bt *BudgetTracker) fireAlert(level string, percentage float64) {
	alert := BudgetAlert{
		Level:       level,
		DailyTokens: bt.dailyTokens,
		BudgetLimit: bt.dailyLimit,
		Percentage:  percentage,
		Timestamp:   time.Now().UTC(),
	}

	if bt.logger != nil {
		bt.logger.Warn().
			Str("level", level).
			Int64("daily_tokens", bt.dailyTokens).
			Int64("budget_limit", bt.dailyLimit).
			Float64("percentage", percentage).
			Msg("LLM budget threshold reached")
	}

	go bt.alertCallback(alert)
}

// resetIfNewDay zeroes the counters when the UTC date rolls over.
// Callers must hold the lock.
func (bt *BudgetTracker) resetIfNewDay() {
	today := time.Now().UTC().Format(dateFormatYMD)
	if bt.lastResetDate == today {
		return
	}

	bt.dailyTokens = 0
	bt.warningFired = false
	bt.criticalFired = false
	bt.lastResetDate = today

	if bt.logger != nil {
		bt.logger.Info().
			Str("date", today).
			Msg("LLM budget tracker reset for new day")
	}
}
