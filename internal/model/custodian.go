package model

import "time"

// CustodianConfig holds the integration settings for one external custodian or
// broker platform. The API credential is stored fernet-encrypted at rest and is
// never returned through the API; Configured only reports its presence.
type CustodianConfig struct {
	ID           string     `json:"id"`
	Platform     string     `json:"platform"`
	Configured   bool       `json:"configured"`
	Enabled      bool       `json:"enabled"`
	SyncSymbols  []string   `json:"syncSymbols,omitempty"`
	LastSyncDate *time.Time `json:"lastSyncDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
