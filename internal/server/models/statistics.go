package models

// TypeStatistics is the per token type breakdown.
type TypeStatistics struct {
	TokenType string `json:"token_type"`
	Total     int64  `json:"total"`
	Used      int64  `json:"used"`
	Active    int64  `json:"active"`
}

// WindowStatistics covers tokens created inside a trailing window.
type WindowStatistics struct {
	Days           int     `json:"days"`
	Generated      int64   `json:"generated"`
	Redeemed       int64   `json:"redeemed"`
	RedemptionRate float64 `json:"redemption_rate"`
}

// TokenStatistics aggregates the claim_tokens table.
type TokenStatistics struct {
	Total   int64            `json:"total"`
	Used    int64            `json:"used"`
	Active  int64            `json:"active"`
	Expired int64            `json:"expired"`
	ByType  []TypeStatistics `json:"by_type"`
	Window  WindowStatistics `json:"window"`
}
