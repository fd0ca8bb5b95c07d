// Package settings reads and edits the credentials used to reach the remote
// listing API.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

// ErrInvalidInput is returned when an update would store an unusable value.
var ErrInvalidInput = errors.New("invalid settings input")

const maskVisible = 4

// View is the read model returned to callers. The secret is masked.
type View struct {
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	ShelterID  string `json:"shelter_id"`
	Configured bool   `json:"configured"`
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	APIKey    *string `json:"api_key,omitempty"`
	APISecret *string `json:"api_secret,omitempty"`
	ShelterID *string `json:"shelter_id,omitempty"`
}

// Service wraps a SettingsStore.
type Service struct {
	store  mirror.SettingsStore
	logger *zap.Logger
}

// New builds a Service.
func New(store mirror.SettingsStore, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("settings")}, nil
}

// Get returns the current settings with the secret masked.
func (s *Service) Get(ctx context.Context) (View, error) {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return View{}, fmt.Errorf("load settings: %w", err)
	}
	return toView(creds), nil
}

// Update applies a partial update and returns the stored result.
func (s *Service) Update(ctx context.Context, in UpdateInput) (View, error) {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return View{}, fmt.Errorf("load settings: %w", err)
	}
	if in.APIKey != nil {
		creds.APIKey = strings.TrimSpace(*in.APIKey)
	}
	if in.APISecret != nil {
		creds.APISecret = strings.TrimSpace(*in.APISecret)
	}
	if in.ShelterID != nil {
		id := strings.ToUpper(strings.TrimSpace(*in.ShelterID))
		if strings.ContainsAny(id, "&?=# ") {
			return View{}, fmt.Errorf("%w: shelter id %q", ErrInvalidInput, id)
		}
		creds.ShelterID = id
	}
	if err := s.store.Save(ctx, creds); err != nil {
		return View{}, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("settings updated",
		zap.String("shelter_id", creds.ShelterID),
		zap.Bool("configured", creds.IsConfigured()),
	)
	return toView(creds), nil
}

// Seed fills settings that are still empty from seed. Stored values win.
func (s *Service) Seed(ctx context.Context, seed mirror.Credentials) error {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	changed := false
	fill := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if strings.TrimSpace(*dst) == "" && v != "" {
			*dst = v
			changed = true
		}
	}
	fill(&creds.APIKey, seed.APIKey)
	fill(&creds.APISecret, seed.APISecret)
	fill(&creds.ShelterID, strings.ToUpper(seed.ShelterID))
	if !changed {
		return nil
	}
	if err := s.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.logger.Debug("settings seeded from config")
	return nil
}

func toView(c mirror.Credentials) View {
	return View{
		APIKey:     c.APIKey,
		APISecret:  Mask(c.APISecret),
		ShelterID:  c.ShelterID,
		Configured: c.IsConfigured(),
	}
}

// Mask hides all but the last few characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= maskVisible {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-maskVisible) + secret[len(secret)-maskVisible:]
}
