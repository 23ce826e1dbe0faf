package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"stockbill/internal/domain"
	"stockbill/internal/repository"
)

func setupPS(t *testing.T) *ProductService {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewProductService(repository.NewCatalog(store), repository.NewMutexTx(), zaptest.NewLogger(t))
}

func TestProduct_Register_Normalizes(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, err := ps.Register(ctx, domain.Product{ID: "P001", Name: "  Notebook ", Price: 10, Stock: 5, Category: " Stationery  ", RefillLimit: 2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Name != "Notebook" || p.Category != "stationery" {
		t.Fatalf("not normalized: %+v", p)
	}
	got, err := ps.Get(ctx, "P001")
	if err != nil || *got != *p {
		t.Fatalf("get: %v %+v", err, got)
	}
}

func TestProduct_Register_Invalid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	cases := []domain.Product{
		{ID: "", Price: 1, Stock: 1},
		{ID: "   ", Price: 1, Stock: 1},
		{ID: "P", Price: -1, Stock: 1},
		{ID: "P", Price: math.NaN(), Stock: 1},
		{ID: "P", Price: math.Inf(1), Stock: 1},
		{ID: "P", Price: 1, Stock: -1},
		{ID: "P", Price: 1, Stock: 1, RefillLimit: -3},
	}
	for _, c := range cases {
		if _, err := ps.Register(ctx, c); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected validation error for %+v, got %v", c, err)
		}
	}
	list, _ := ps.List(ctx)
	if len(list) != 0 {
		t.Fatalf("invalid input must not persist anything")
	}
}

func TestProduct_Register_Conflict(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	if _, err := ps.Register(ctx, domain.Product{ID: "P001", Name: "Original", Price: 10, Stock: 5}); err != nil {
		t.Fatal(err)
	}
	_, err := ps.Register(ctx, domain.Product{ID: "P001", Name: "Impostor", Price: 99, Stock: 1})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, _ := ps.Get(ctx, "P001")
	if got.Name != "Original" || got.Price != 10 || got.Stock != 5 {
		t.Fatalf("original record changed: %+v", got)
	}
}

func TestProduct_SetStock(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	_, _ = ps.Register(ctx, domain.Product{ID: "P001", Price: 10, Stock: 5, RefillLimit: 2})

	up, err := ps.SetStock(ctx, "P001", 0)
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if up.Stock != 0 {
		t.Fatalf("stock not updated: %+v", up)
	}
	if _, err := ps.SetStock(ctx, "P404", 3); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := ps.SetStock(ctx, "P001", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ps.SetStock(ctx, "", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProduct_Remove_Get(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	_, _ = ps.Register(ctx, domain.Product{ID: "P001", Name: "A", Price: 10, Stock: 5})

	removed, err := ps.Remove(ctx, "P001")
	if err != nil {
		t.Fatalf("remove err: %v", err)
	}
	if removed.ID != "P001" || removed.Name != "A" {
		t.Fatalf("unexpected removed record: %+v", removed)
	}
	if _, err := ps.Get(ctx, "P001"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if _, err := ps.Remove(ctx, "P001"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestProduct_List_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	for _, id := range []string{"Z9", "A1", "M5"} {
		if _, err := ps.Register(ctx, domain.Product{ID: id, Price: 1, Stock: 1}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := ps.List(ctx)
	if err != nil {
		t.Fatalf("list err: %v", err)
	}
	if len(list) != 3 || list[0].ID != "Z9" || list[1].ID != "A1" || list[2].ID != "M5" {
		t.Fatalf("unexpected order: %+v", list)
	}
}
