package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// Settings returns the stored settings, or the configured defaults when
// nothing has been stored yet.
func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	return s.settingsFrom(ctx, s.store)
}

// DefaultBagWeight returns the bag weight applied when a lot item has none.
func (s *Service) DefaultBagWeight(ctx context.Context) (decimal.Decimal, error) {
	return s.bagWeight(ctx, s.store)
}

// UpdateSettings applies patch and returns the resulting settings.
func (s *Service) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (result models.Settings, err error) {
	defer func() { s.observe("update_settings", err) }()

	if patch.DefaultBagWeightKg != nil && !patch.DefaultBagWeightKg.IsPositive() {
		return models.Settings{}, invalid("default_bag_weight_kg", "must be greater than zero")
	}

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := s.settingsFrom(ctx, tx)
		if err != nil {
			return err
		}
		if patch.DefaultBagWeightKg != nil {
			current.DefaultBagWeightKg = *patch.DefaultBagWeightKg
		}
		current.UpdatedAt = s.timestamp()
		if err := tx.SaveSettings(ctx, current); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		result = current
		return nil
	})
	if err != nil {
		return models.Settings{}, err
	}

	s.logger.Info("settings updated", zap.String("default_bag_weight_kg", result.DefaultBagWeightKg.String()))
	return result, nil
}

func (s *Service) settingsFrom(ctx context.Context, r repository.Reader) (models.Settings, error) {
	settings, err := r.GetSettings(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Settings{DefaultBagWeightKg: s.defaultBagWeight}, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

func (s *Service) bagWeight(ctx context.Context, r repository.Reader) (decimal.Decimal, error) {
	settings, err := s.settingsFrom(ctx, r)
	if err != nil {
		return decimal.Zero, err
	}
	return models.ResolveBagWeight(settings.DefaultBagWeightKg, s.defaultBagWeight), nil
}
