package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"stockbill/internal/domain"
)

// document JSON-документ id -> Product поверх BlobStore
type document struct {
	blobs BlobStore
	key   string
}

// Load читает документ целиком; отсутствующий документ это пустой каталог
func (d document) Load(ctx context.Context) (*domain.ProductMap, error) {
	b, err := d.blobs.Read(ctx, d.key)
	if errors.Is(err, ErrNotFound) {
		return domain.NewProductMap(), nil
	}
	if err != nil {
		return nil, err
	}
	m := domain.NewProductMap()
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.key, err)
	}
	return m, nil
}

// Save перезаписывает документ целиком
func (d document) Save(ctx context.Context, m *domain.ProductMap) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.key, err)
	}
	return d.blobs.Write(ctx, d.key, b)
}

// Catalog хранилище каталога товаров
type Catalog struct {
	document
}

func NewCatalog(blobs BlobStore) *Catalog {
	return &Catalog{document{blobs: blobs, key: CatalogKey}}
}

var _ CatalogStore = (*Catalog)(nil)

// Ledger журнал сигналов о пополнении. Запись по id, последняя побеждает.
type Ledger struct {
	document
	mu sync.Mutex
}

func NewLedger(blobs BlobStore) *Ledger {
	return &Ledger{document: document{blobs: blobs, key: LedgerKey}}
}

var _ RefillLedger = (*Ledger)(nil)

// AddOne читает журнал, заменяет одну запись и перезаписывает документ
func (l *Ledger) AddOne(ctx context.Context, p domain.Product) error {
	return l.Upsert(ctx, p)
}

// Upsert то же, что AddOne, но для нескольких снимков одной записью
func (l *Ledger) Upsert(ctx context.Context, products ...domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m, err := l.Load(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		m.Set(p)
	}
	return l.Save(ctx, m)
}
