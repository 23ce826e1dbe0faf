package domain

import (
	"encoding/json"
	"testing"
)

func TestProductMap_OrderPreserved(t *testing.T) {
	m := NewProductMap(
		Product{ID: "P003", Name: "C"},
		Product{ID: "P001", Name: "A"},
		Product{ID: "P002", Name: "B"},
	)
	// overwrite keeps position
	m.Set(Product{ID: "P001", Name: "A2"})

	got := m.Values()
	want := []string{"P003", "P001", "P002"}
	if len(got) != len(want) {
		t.Fatalf("len %d", len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("pos %d: want %s got %s", i, id, got[i].ID)
		}
	}
	if p, _ := m.Get("P001"); p.Name != "A2" {
		t.Fatalf("overwrite lost: %+v", p)
	}
}

func TestProductMap_JSONRoundTrip(t *testing.T) {
	m := NewProductMap(
		Product{ID: "b", Name: "Bolt", Price: 0.25, Stock: 100, Category: "hardware", RefillLimit: 10},
		Product{ID: "a", Name: "Anchor", Price: 3, Stock: 4, Category: "hardware", RefillLimit: 5},
	)
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:5]) != `{"b":` {
		t.Fatalf("key order not kept: %s", data)
	}

	var back ProductMap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Len() != 2 {
		t.Fatalf("len %d", back.Len())
	}
	vals := back.Values()
	if vals[0] != m.Values()[0] || vals[1] != m.Values()[1] {
		t.Fatalf("round trip mismatch: %+v", vals)
	}
}

func TestProductMap_UnmarshalNullAndGarbage(t *testing.T) {
	var m ProductMap
	if err := json.Unmarshal([]byte("null"), &m); err != nil {
		t.Fatalf("null: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty")
	}
	if err := json.Unmarshal([]byte(`[1,2]`), &m); err == nil {
		t.Fatalf("expected error for array")
	}
}

func TestProductMap_Delete(t *testing.T) {
	m := NewProductMap(Product{ID: "x", Stock: 1}, Product{ID: "y", Stock: 2})

	removed, ok := m.Delete("x")
	if !ok || removed.ID != "x" {
		t.Fatalf("delete: %v %+v", ok, removed)
	}
	if _, ok := m.Delete("x"); ok {
		t.Fatalf("second delete should miss")
	}
	if m.Len() != 1 || m.Values()[0].ID != "y" {
		t.Fatalf("unexpected remaining %+v", m.Values())
	}
}

func TestProduct_NeedsRefill(t *testing.T) {
	if !(Product{Stock: 2, RefillLimit: 2}).NeedsRefill() {
		t.Fatalf("stock at limit must need refill")
	}
	if (Product{Stock: 3, RefillLimit: 2}).NeedsRefill() {
		t.Fatalf("stock above limit must not need refill")
	}
}
