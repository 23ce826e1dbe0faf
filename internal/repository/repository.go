package repository

import (
	"context"
	"errors"

	"stockbill/internal/domain"
)

// ErrNotFound возвращается, когда сущность или документ не найдены
var ErrNotFound = errors.New("not found")

// Ключи документов в хранилище
const (
	CatalogKey = "products"
	LedgerKey  = "refill_alert"
)

// BlobStore сырое key-value хранилище JSON-документов.
// Read возвращает ErrNotFound, если документа нет.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
}

// CatalogStore хранит весь каталог целиком: загрузка и полная перезапись, без частичных обновлений
type CatalogStore interface {
	Load(ctx context.Context) (*domain.ProductMap, error)
	Save(ctx context.Context, m *domain.ProductMap) error
}

// RefillLedger журнал снимков товаров, требующих пополнения
type RefillLedger interface {
	CatalogStore
	AddOne(ctx context.Context, p domain.Product) error
	Upsert(ctx context.Context, products ...domain.Product) error
}

// TxManager абстракция транзакции: сериализует все изменения каталога.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
