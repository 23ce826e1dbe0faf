package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"stockbill/internal/domain"
	"stockbill/internal/repository"
)

// ProductService реестр товаров: каждая операция читает каталог целиком и, если меняет его, сохраняет целиком
type ProductService struct {
	catalog repository.CatalogStore
	tx      repository.TxManager
	log     *zap.Logger
}

func NewProductService(catalog repository.CatalogStore, tx repository.TxManager, log *zap.Logger) *ProductService {
	return &ProductService{catalog: catalog, tx: tx, log: log}
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	return nil
}

func validateCount(field string, v int64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidInput, field)
	}
	return nil
}

// Register добавляет новый товар. Имя и категория нормализуются.
func (s *ProductService) Register(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateID(p.ID); err != nil {
		return nil, err
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return nil, fmt.Errorf("%w: price must be a non-negative number", ErrInvalidInput)
	}
	if err := validateCount("stock", p.Stock); err != nil {
		return nil, err
	}
	if err := validateCount("refill_limit", p.RefillLimit); err != nil {
		return nil, err
	}

	rec := domain.Product{
		ID:          p.ID,
		Name:        strings.TrimSpace(p.Name),
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    strings.ToLower(strings.TrimSpace(p.Category)),
		RefillLimit: p.RefillLimit,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		m, err := s.catalog.Load(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		if m.Has(rec.ID) {
			return fmt.Errorf("%w: product %s", ErrAlreadyExists, rec.ID)
		}
		m.Set(rec)
		if err := s.catalog.Save(ctx, m); err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("product registered", zap.String("product_id", rec.ID), zap.Int64("stock", rec.Stock))
	return &rec, nil
}

// SetStock безусловно перезаписывает остаток. Журнал пополнения не трогает.
func (s *ProductService) SetStock(ctx context.Context, id string, stock int64) (*domain.Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := validateCount("stock", stock); err != nil {
		return nil, err
	}
	var updated domain.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		m, err := s.catalog.Load(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		p, ok := m.Get(id)
		if !ok {
			return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
		}
		p.Stock = stock
		m.Set(p)
		if err := s.catalog.Save(ctx, m); err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("stock updated", zap.String("product_id", id), zap.Int64("stock", stock))
	return &updated, nil
}

// Remove удаляет товар и возвращает удалённую запись
func (s *ProductService) Remove(ctx context.Context, id string) (*domain.Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var removed domain.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		m, err := s.catalog.Load(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		p, ok := m.Delete(id)
		if !ok {
			return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
		}
		if err := s.catalog.Save(ctx, m); err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		removed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("product removed", zap.String("product_id", id))
	return &removed, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	m, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	p, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	return &p, nil
}

// List возвращает товары в порядке добавления
func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	m, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return m.Values(), nil
}
