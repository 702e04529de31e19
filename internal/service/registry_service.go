package service

import (
	"context"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// RegistryService минимальный учёт участников площадки: аптеки, покупатели,
// курьеры. Полный жизненный цикл этих сущностей ведёт внешняя часть
// маркетплейса; ядру достаточно регистрации и чтения.
type RegistryService struct {
	pharmacies repository.PharmacyRepository
	clients    repository.ClientRepository
	riders     repository.RiderRepository
}

func NewRegistryService(pharmacies repository.PharmacyRepository, clients repository.ClientRepository, riders repository.RiderRepository) *RegistryService {
	return &RegistryService{pharmacies: pharmacies, clients: clients, riders: riders}
}

func (s *RegistryService) CreatePharmacy(ctx context.Context, p domain.Pharmacy) (*domain.Pharmacy, error) {
	if p.Name == "" {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.pharmacies.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *RegistryService) GetPharmacy(ctx context.Context, id int64) (*domain.Pharmacy, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.pharmacies.GetByID(ctx, id)
}

func (s *RegistryService) ListPharmacies(ctx context.Context) ([]domain.Pharmacy, error) {
	return s.pharmacies.List(ctx)
}

func (s *RegistryService) CreateClient(ctx context.Context, c domain.Client) (*domain.Client, error) {
	if c.Name == "" {
		return nil, ErrInvalidInput
	}
	cp := c
	if err := s.clients.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *RegistryService) CreateRider(ctx context.Context, r domain.Rider) (*domain.Rider, error) {
	if r.Name == "" {
		return nil, ErrInvalidInput
	}
	cp := r
	if err := s.riders.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
