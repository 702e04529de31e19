package service

import (
	"context"
	"errors"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// CatalogService каталог: прайс-позиции аптек и поиск препаратов.
// Поиск и чтение позиций не имеют побочных эффектов.
type CatalogService struct {
	listings   repository.ListingRepository
	medicines  repository.MedicineRepository
	pharmacies repository.PharmacyRepository
}

func NewCatalogService(listings repository.ListingRepository, medicines repository.MedicineRepository, pharmacies repository.PharmacyRepository) *CatalogService {
	return &CatalogService{listings: listings, medicines: medicines, pharmacies: pharmacies}
}

// GetListing возвращает прайс-позицию с текущей ценой и остатком
func (s *CatalogService) GetListing(ctx context.Context, id int64) (*domain.PharmacyListing, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.listings.GetByID(ctx, id)
}

// CreateMedicine добавляет препарат в каталог площадки
func (s *CatalogService) CreateMedicine(ctx context.Context, m domain.Medicine) (*domain.Medicine, error) {
	if m.Name == "" {
		return nil, ErrInvalidInput
	}
	cp := m
	if err := s.medicines.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// CreateListing добавляет позицию в прайс аптеки
func (s *CatalogService) CreateListing(ctx context.Context, l domain.PharmacyListing) (*domain.PharmacyListing, error) {
	if l.PharmacyID <= 0 || l.MedicineID <= 0 || l.Price <= 0 || l.Stock < 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.pharmacies.GetByID(ctx, l.PharmacyID); err != nil {
		return nil, err
	}
	if _, err := s.medicines.GetByID(ctx, l.MedicineID); err != nil {
		return nil, err
	}
	cp := l
	if err := s.listings.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// UpdateListing меняет цену, остаток или активность позиции
func (s *CatalogService) UpdateListing(ctx context.Context, l domain.PharmacyListing) (*domain.PharmacyListing, error) {
	if l.ID <= 0 || l.Price <= 0 || l.Stock < 0 {
		return nil, ErrInvalidInput
	}
	cur, err := s.listings.GetByID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	cur.Price = l.Price
	cur.Stock = l.Stock
	cur.Active = l.Active
	if err := s.listings.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// ListPharmacyListings возвращает прайс одной аптеки
func (s *CatalogService) ListPharmacyListings(ctx context.Context, pharmacyID int64) ([]domain.PharmacyListing, error) {
	if pharmacyID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.listings.ListByPharmacy(ctx, pharmacyID)
}

// SearchMedicines возвращает препараты, доступные хотя бы в одной
// проверенной активной аптеке с ненулевым остатком: на препарат берётся
// минимальная цена по аптекам и количество предлагающих аптек.
// При равенстве цен остаётся первая встреченная — сравнивается только цена,
// поэтому результат не зависит от порядка обхода.
func (s *CatalogService) SearchMedicines(ctx context.Context, query, category string) ([]domain.MedicineOffer, error) {
	meds, err := s.medicines.List(ctx, repository.MedicineFilter{Query: query, Category: category})
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Medicine, len(meds))
	for _, m := range meds {
		byID[m.ID] = m
	}

	listings, err := s.listings.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	pharmacyOK := make(map[int64]bool)
	offers := make(map[int64]*domain.MedicineOffer)
	for _, l := range listings {
		if l.Stock <= 0 {
			continue
		}
		med, ok := byID[l.MedicineID]
		if !ok {
			continue
		}
		allowed, seen := pharmacyOK[l.PharmacyID]
		if !seen {
			p, err := s.pharmacies.GetByID(ctx, l.PharmacyID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					pharmacyOK[l.PharmacyID] = false
					continue
				}
				return nil, err
			}
			allowed = p.Verified && p.Active
			pharmacyOK[l.PharmacyID] = allowed
		}
		if !allowed {
			continue
		}
		off, ok := offers[med.ID]
		if !ok {
			offers[med.ID] = &domain.MedicineOffer{Medicine: med, MinPrice: l.Price, PharmacyCount: 1}
			continue
		}
		off.PharmacyCount++
		if l.Price < off.MinPrice {
			off.MinPrice = l.Price
		}
	}

	out := make([]domain.MedicineOffer, 0, len(offers))
	for _, m := range meds {
		if off, ok := offers[m.ID]; ok {
			out = append(out, *off)
		}
	}
	return out, nil
}
