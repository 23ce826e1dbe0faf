package repository

import (
	"context"
	"sync"
	"testing"

	"stockbill/internal/domain"
)

func TestMemoryStore_ReadWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Read(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	data := []byte(`{"a":1}`)
	if err := store.Write(ctx, "doc", data); err != nil {
		t.Fatalf("write: %v", err)
	}
	// caller mutation must not leak into the store
	data[0] = 'X'

	got, err := store.Read(ctx, "doc")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestCatalog_EmptyWhenMissing(t *testing.T) {
	cat := NewCatalog(NewMemoryStore())
	m, err := cat.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d", m.Len())
	}
}

func TestMutexTx_SerializesReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryStore()
	cat := NewCatalog(blobs)
	tx := NewMutexTx()

	if err := cat.Save(ctx, domain.NewProductMap(domain.Product{ID: "P1", Stock: 100})); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tx.WithTransaction(ctx, func(ctx context.Context) error {
				m, err := cat.Load(ctx)
				if err != nil {
					return err
				}
				p, _ := m.Get("P1")
				p.Stock--
				m.Set(p)
				return cat.Save(ctx, m)
			})
			if err != nil {
				t.Errorf("tx: %v", err)
			}
		}()
	}
	wg.Wait()

	m, _ := cat.Load(ctx)
	p, _ := m.Get("P1")
	if p.Stock != 50 {
		t.Fatalf("lost update: stock expected 50, got %v", p.Stock)
	}
}

func TestMutexTx_Reentrant(t *testing.T) {
	tx := NewMutexTx()
	calls := 0
	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	if err != nil || calls != 1 {
		t.Fatalf("nested tx: err=%v calls=%d", err, calls)
	}
}
