// Package receipt рендерит чеки в PDF-документы на локальном диске.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"stockbill/internal/config"
	"stockbill/internal/domain"
)

var (
	ErrInvalidFilename  = errors.New("invalid receipt filename")
	ErrDocumentNotFound = errors.New("file not found")
)

const (
	marginLeft = 50.0
	titleTop   = 40.0
	linesTop   = 80.0
	lineStep   = 20.0

	maxNameAttempts = 1000
)

// Renderer пишет по одному PDF на чек в каталог outputDir.
// Строки идут с фиксированным шагом; длинный чек уходит за первую страницу.
type Renderer struct {
	outputDir string
	now       func() time.Time
}

func NewRenderer(cfg config.ReceiptConfig) *Renderer {
	return &Renderer{outputDir: cfg.OutputDir, now: time.Now}
}

// Render сохраняет чек и возвращает путь к документу. Пустое имя строится
// из текущего времени, например bill_2025-09-10_10-30-00.pdf. Существующий
// файл не перезаписывается: к имени добавляется суффикс _2, _3 и так далее.
func (r *Renderer) Render(bill *domain.Bill, filename string) (string, error) {
	if filename == "" {
		filename = "bill_" + r.now().Format("2006-01-02_15-04-05") + ".pdf"
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	var buf bytes.Buffer
	if err := r.draw(bill).Output(&buf); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}

	f, path, err := r.create(filename)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write receipt: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return path, nil
}

// create занимает свободное имя в outputDir, не трогая чужие документы.
func (r *Renderer) create(filename string) (*os.File, string, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		name := filename
		if i > 1 {
			name = stem + "_" + strconv.Itoa(i) + ext
		}
		path := filepath.Join(r.outputDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create receipt: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create receipt: no free name for %q", filename)
}

func (r *Renderer) draw(bill *domain.Bill) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(false)
	pdf.SetCreationDate(r.now())
	pdf.SetTitle("Bill receipt", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(marginLeft, titleTop, "BILL RECEIPT")

	pdf.SetFont("Helvetica", "", 10)
	y := linesTop
	for _, it := range bill.Items {
		pdf.Text(marginLeft, y, tr(FormatLine(it)))
		y += lineStep
	}
	pdf.Text(marginLeft, y+lineStep, "TOTAL: "+formatMoney(bill.Total))
	return pdf
}

// FormatLine печатает позицию чека как "name | qty x unit_price = amount".
func FormatLine(it domain.BillItem) string {
	return fmt.Sprintf("%s | %d x %s = %s", it.Name, it.Qty, formatMoney(it.UnitPrice), formatMoney(it.Amount))
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Open проверяет путь документа для скачивания. Отдаются только обычные
// файлы внутри outputDir.
func (r *Renderer) Open(path string) (string, error) {
	if path == "" {
		return "", ErrDocumentNotFound
	}
	dir, err := filepath.Abs(r.outputDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrDocumentNotFound
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrDocumentNotFound
	}
	st, err := os.Stat(abs)
	if err != nil || !st.Mode().IsRegular() {
		return "", ErrDocumentNotFound
	}
	return abs, nil
}
