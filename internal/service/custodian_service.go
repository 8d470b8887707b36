package service

import (
	"context"
	"time"

	"assetledger/internal/api/request"
	"assetledger/internal/model"
	"assetledger/internal/repository"
	"assetledger/internal/secrets"
)

// CustodianService manages external custodian integrations. API credentials
// are encrypted before they reach the repository and decrypted only for the
// price feed sync; the API surface never sees plaintext credentials.
type CustodianService struct {
	custodianRepo *repository.CustodianRepository
	box           *secrets.Box
}

// NewCustodianService creates a new CustodianService with the provided dependencies.
func NewCustodianService(custodianRepo *repository.CustodianRepository, box *secrets.Box) *CustodianService {
	return &CustodianService{
		custodianRepo: custodianRepo,
		box:           box,
	}
}

// Configure creates or updates the integration settings for a platform. An
// empty APIKey in the request keeps the stored credential as is, so settings
// can be toggled without re-entering the key.
func (s *CustodianService) Configure(ctx context.Context, req request.ConfigureCustodianRequest) (model.CustodianConfig, error) {
	encrypted := ""
	if req.APIKey != "" {
		var err error
		encrypted, err = s.box.Encrypt(req.APIKey)
		if err != nil {
			return model.CustodianConfig{}, err
		}
	}

	cfg := model.CustodianConfig{
		Platform:    req.Platform,
		Enabled:     req.Enabled,
		SyncSymbols: req.SyncSymbols,
	}
	if cfg.SyncSymbols == nil {
		cfg.SyncSymbols = []string{}
	}

	if err := s.custodianRepo.Upsert(ctx, &cfg, encrypted); err != nil {
		return model.CustodianConfig{}, err
	}

	stored, _, err := s.custodianRepo.Get(req.Platform)
	if err != nil {
		return model.CustodianConfig{}, err
	}

	return stored, nil
}

// GetConfig retrieves the configuration for one platform without its credential.
func (s *CustodianService) GetConfig(platform string) (model.CustodianConfig, error) {
	cfg, _, err := s.custodianRepo.Get(platform)
	return cfg, err
}

// ListEnabled retrieves all enabled custodian configurations.
func (s *CustodianService) ListEnabled() ([]model.CustodianConfig, error) {
	return s.custodianRepo.ListEnabled()
}

// MarkSynced stamps the most recent successful price sync for a platform.
func (s *CustodianService) MarkSynced(ctx context.Context, platform string, at time.Time) error {
	return s.custodianRepo.UpdateLastSync(ctx, platform, at)
}

// Credential decrypts the stored API key for a platform. Only the price feed
// sync calls this.
func (s *CustodianService) Credential(platform string) (string, error) {
	_, encrypted, err := s.custodianRepo.Get(platform)
	if err != nil {
		return "", err
	}
	if encrypted == "" {
		return "", secrets.ErrNoKey
	}

	return s.box.Decrypt(encrypted)
}
