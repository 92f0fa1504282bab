package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ranking warnings, one per failed feasibility check.
const (
	WarnReceiveUnavailable = "wallet unavailable for receiving"
	WarnSendUnavailable    = "wallet unavailable for sending"
	WarnInsufficientFunds  = "insufficient balance including safety margin"
	WarnDailyLimit         = "would exceed daily limit"
)

// Suggestion is one ranked wallet candidate for a requested transaction.
type Suggestion struct {
	WalletID            uuid.UUID       `json:"wallet_id"`
	Provider            string          `json:"provider"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
	RemainingDailyLimit decimal.Decimal `json:"remaining_daily_limit"`
	IsRecommended       bool            `json:"is_recommended"`
	Warning             string          `json:"warning,omitempty"`
}
