package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockbill/internal/domain"
	"stockbill/internal/repository"
)

// AlertPublisher получает снимки товаров, опустившихся до порога пополнения
type AlertPublisher interface {
	PublishRefillAlerts(ctx context.Context, products []domain.Product) error
}

const publishTimeout = 10 * time.Second

// BillingService проводит продажу: проверка корзины целиком, списание остатков, расчёт чека
type BillingService struct {
	catalog   repository.CatalogStore
	ledger    repository.RefillLedger
	tx        repository.TxManager
	publisher AlertPublisher
	log       *zap.Logger

	// in-flight alert publishes
	pending sync.WaitGroup
}

func NewBillingService(catalog repository.CatalogStore, ledger repository.RefillLedger, tx repository.TxManager, publisher AlertPublisher, log *zap.Logger) *BillingService {
	return &BillingService{catalog: catalog, ledger: ledger, tx: tx, publisher: publisher, log: log}
}

// Checkout проверяет всю корзину до первого изменения и сохраняет каталог одной записью.
// Корзина, которая не проходит проверку хотя бы по одной строке, не меняет ничего.
func (s *BillingService) Checkout(ctx context.Context, cart []domain.CartLine) (*domain.Bill, error) {
	if len(cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	for _, line := range cart {
		if err := validateID(line.ID); err != nil {
			return nil, err
		}
		if line.Qty <= 0 {
			return nil, fmt.Errorf("%w: qty for %s must be a positive integer", ErrInvalidInput, line.ID)
		}
	}

	var (
		bill   *domain.Bill
		alerts *domain.ProductMap
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		catalog, err := s.catalog.Load(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		if err := checkCart(catalog, cart); err != nil {
			return err
		}
		bill, alerts = applyCart(catalog, cart)

		if err := s.catalog.Save(ctx, catalog); err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		// the sale is committed at this point; a ledger failure must not report it as failed
		if alerts.Len() > 0 {
			if err := s.ledger.Upsert(ctx, alerts.Values()...); err != nil {
				s.log.Error("failed to record refill alerts", zap.Int("count", alerts.Len()), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout committed",
		zap.Int("lines", len(bill.Items)),
		zap.Float64("total", bill.Total),
		zap.Int("refill_alerts", alerts.Len()))

	if alerts.Len() > 0 && s.publisher != nil {
		s.pending.Add(1)
		go s.publish(alerts.Values())
	}
	return bill, nil
}

// publish отправляет уведомления вне запроса; продажа к этому моменту уже сохранена.
// Контекст запроса сюда не передаётся: он заканчивается вместе с ответом.
func (s *BillingService) publish(products []domain.Product) {
	defer s.pending.Done()
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishRefillAlerts(ctx, products); err != nil {
		s.log.Warn("failed to publish refill alerts", zap.Int("count", len(products)), zap.Error(err))
	}
}

// Wait блокируется, пока не завершатся начатые публикации уведомлений.
func (s *BillingService) Wait() {
	s.pending.Wait()
}

// checkCart первый проход, без изменений. Количество по одному id суммируется по всем строкам.
func checkCart(catalog *domain.ProductMap, cart []domain.CartLine) error {
	requested := make(map[string]int64, len(cart))
	for _, line := range cart {
		p, ok := catalog.Get(line.ID)
		if !ok {
			return fmt.Errorf("product %s: %w", line.ID, repository.ErrNotFound)
		}
		requested[line.ID] += line.Qty
		if requested[line.ID] > p.Stock {
			return fmt.Errorf("%w for %s", ErrInsufficientStock, line.ID)
		}
	}
	return nil
}

// applyCart второй проход: списывает остатки в порядке корзины и собирает снимки для журнала пополнения
func applyCart(catalog *domain.ProductMap, cart []domain.CartLine) (*domain.Bill, *domain.ProductMap) {
	alerts := domain.NewProductMap()
	items := make([]domain.BillItem, 0, len(cart))
	total := decimal.Zero

	for _, line := range cart {
		p, _ := catalog.Get(line.ID)
		amount := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(line.Qty))
		total = total.Add(amount)

		p.Stock -= line.Qty
		catalog.Set(p)
		if p.NeedsRefill() {
			alerts.Set(p)
		}

		items = append(items, domain.BillItem{
			ID:        p.ID,
			Name:      p.Name,
			Qty:       line.Qty,
			UnitPrice: p.Price,
			Amount:    amount.InexactFloat64(),
		})
	}

	return &domain.Bill{Items: items, Total: total.Round(2).InexactFloat64()}, alerts
}
