package request

// ConfigureCustodianRequest sets up or updates one custodian integration.
// APIKey is write-only: it is encrypted at rest and never echoed back.
type ConfigureCustodianRequest struct {
	Platform    string   `json:"platform"`
	APIKey      string   `json:"apiKey,omitempty"`
	Enabled     bool     `json:"enabled"`
	SyncSymbols []string `json:"syncSymbols,omitempty"`
}
