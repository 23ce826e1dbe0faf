package receipt

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockbill/internal/config"
	"stockbill/internal/domain"
)

func sampleBill() *domain.Bill {
	return &domain.Bill{
		Items: []domain.BillItem{
			{ID: "P001", Name: "Notebook", Qty: 4, UnitPrice: 10, Amount: 40},
			{ID: "P002", Name: "Pencil", Qty: 3, UnitPrice: 0.5, Amount: 1.5},
		},
		Total: 41.5,
	}
}

func TestRender_DefaultFilenameAndContent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bills")
	r := NewRenderer(config.ReceiptConfig{OutputDir: dir})
	r.now = func() time.Time { return time.Date(2025, 9, 10, 10, 30, 0, 0, time.Local) }

	path, err := r.Render(sampleBill(), "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "bill_2025-09-10_10-30-00.pdf"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "%PDF-"))
	require.Contains(t, string(raw), "BILL RECEIPT")
	require.Contains(t, string(raw), "Notebook | 4 x 10.00 = 40.00")
	require.Contains(t, string(raw), "Pencil | 3 x 0.50 = 1.50")
	require.Contains(t, string(raw), "TOTAL: 41.50")
}

func TestRender_SameSecondKeepsEachReceipt(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(config.ReceiptConfig{OutputDir: dir})
	r.now = func() time.Time { return time.Date(2025, 9, 10, 10, 30, 0, 0, time.Local) }

	first := &domain.Bill{Items: []domain.BillItem{{ID: "P001", Name: "Notebook", Qty: 1, UnitPrice: 10, Amount: 10}}, Total: 10}
	second := &domain.Bill{Items: []domain.BillItem{{ID: "P002", Name: "Pencil", Qty: 3, UnitPrice: 0.5, Amount: 1.5}}, Total: 1.5}
	third := &domain.Bill{Items: []domain.BillItem{{ID: "P003", Name: "Eraser", Qty: 1, UnitPrice: 1, Amount: 1}}, Total: 1}

	p1, err := r.Render(first, "")
	require.NoError(t, err)
	p2, err := r.Render(second, "")
	require.NoError(t, err)
	p3, err := r.Render(third, "")
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "bill_2025-09-10_10-30-00.pdf"), p1)
	require.Equal(t, filepath.Join(dir, "bill_2025-09-10_10-30-00_2.pdf"), p2)
	require.Equal(t, filepath.Join(dir, "bill_2025-09-10_10-30-00_3.pdf"), p3)

	raw1, err := os.ReadFile(p1)
	require.NoError(t, err)
	require.Contains(t, string(raw1), "Notebook")
	require.NotContains(t, string(raw1), "Pencil")

	raw2, err := os.ReadFile(p2)
	require.NoError(t, err)
	require.Contains(t, string(raw2), "Pencil")
	require.NotContains(t, string(raw2), "Notebook")
}

func TestRender_ConcurrentRendersGetDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(config.ReceiptConfig{OutputDir: dir})
	r.now = func() time.Time { return time.Date(2025, 9, 10, 10, 30, 0, 0, time.Local) }

	const n = 8
	paths := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := r.Render(sampleBill(), "")
			if err != nil {
				t.Errorf("render: %v", err)
				return
			}
			paths <- p
		}()
	}
	wg.Wait()
	close(paths)

	seen := map[string]bool{}
	for p := range paths {
		require.False(t, seen[p], "path reused: %s", p)
		seen[p] = true
	}
	require.Len(t, seen, n)
}

func TestRender_ExplicitFilename(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(config.ReceiptConfig{OutputDir: dir})

	path, err := r.Render(sampleBill(), "custom.pdf")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "custom.pdf"), path)

	for _, bad := range []string{"../escape.pdf", "a/b.pdf", "..", `x\y.pdf`} {
		_, err := r.Render(sampleBill(), bad)
		require.ErrorIs(t, err, ErrInvalidFilename, bad)
	}
}

func TestOpen_RestrictedToOutputDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "bills")
	r := NewRenderer(config.ReceiptConfig{OutputDir: dir})

	path, err := r.Render(sampleBill(), "ok.pdf")
	require.NoError(t, err)

	resolved, err := r.Open(path)
	require.NoError(t, err)
	require.Equal(t, "ok.pdf", filepath.Base(resolved))

	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	for _, p := range []string{"", outside, filepath.Join(dir, "..", "secret.txt"), dir, filepath.Join(dir, "missing.pdf")} {
		_, err := r.Open(p)
		require.ErrorIs(t, err, ErrDocumentNotFound, p)
	}
}

func TestFormatLine(t *testing.T) {
	got := FormatLine(domain.BillItem{Name: "Tea", Qty: 2, UnitPrice: 4.25, Amount: 8.5})
	require.Equal(t, "Tea | 2 x 4.25 = 8.50", got)
}
