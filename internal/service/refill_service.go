package service

import (
	"context"
	"fmt"

	"stockbill/internal/domain"
	"stockbill/internal/repository"
)

// RefillService чтение журнала пополнения для дашборда и внешних потребителей
type RefillService struct {
	ledger repository.RefillLedger
}

func NewRefillService(ledger repository.RefillLedger) *RefillService {
	return &RefillService{ledger: ledger}
}

func (s *RefillService) List(ctx context.Context) ([]domain.Product, error) {
	m, err := s.ledger.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load refill ledger: %w", err)
	}
	return m.Values(), nil
}
