package service

import (
	"context"

	"github.com/shopspring/decimal"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// SettingsService глобальные настройки площадки: тарифы доставки и процент
// комиссии. Строка одна; создаётся явно на старте, а не лениво при чтении.
type SettingsService struct {
	repo repository.SettingsRepository
}

func NewSettingsService(repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// EnsureDefaults создаёт строку настроек со значениями по умолчанию; шаг
// инициализации при старте сервиса, повторный вызов — no-op
func (s *SettingsService) EnsureDefaults(ctx context.Context) error {
	return s.repo.Ensure(ctx, domain.PlatformSettings{
		DeliveryFeeNear:      domain.DefaultDeliveryFeeNear,
		DeliveryFeeFar:       domain.DefaultDeliveryFeeFar,
		CommissionPercentage: domain.DefaultCommissionPercentage(),
	})
}

func (s *SettingsService) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	return s.repo.Get(ctx)
}

// UpdateSettingsInput частичное обновление: nil-поля не меняются
type UpdateSettingsInput struct {
	DeliveryFeeNear      *int64
	DeliveryFeeFar       *int64
	CommissionPercentage *decimal.Decimal
}

func (s *SettingsService) Update(ctx context.Context, in UpdateSettingsInput) (*domain.PlatformSettings, error) {
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if in.DeliveryFeeNear != nil {
		if *in.DeliveryFeeNear < 0 {
			return nil, ErrInvalidInput
		}
		cur.DeliveryFeeNear = *in.DeliveryFeeNear
	}
	if in.DeliveryFeeFar != nil {
		if *in.DeliveryFeeFar < 0 {
			return nil, ErrInvalidInput
		}
		cur.DeliveryFeeFar = *in.DeliveryFeeFar
	}
	if in.CommissionPercentage != nil {
		if in.CommissionPercentage.IsNegative() {
			return nil, ErrInvalidInput
		}
		cur.CommissionPercentage = *in.CommissionPercentage
	}
	if err := s.repo.Save(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}
