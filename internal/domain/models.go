package domain

// Product представляет товар на складе
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int64   `json:"stock"`
	Category    string  `json:"category"`
	RefillLimit int64   `json:"refill_limit"`
}

// NeedsRefill сообщает, что остаток опустился до порога пополнения
func (p Product) NeedsRefill() bool {
	return p.Stock <= p.RefillLimit
}

// CartLine позиция корзины
type CartLine struct {
	ID  string `json:"id"`
	Qty int64  `json:"qty"`
}

// BillItem строка чека, цена фиксируется на момент продажи
type BillItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Qty       int64   `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
}

// Bill результат оформления продажи. Не сохраняется.
type Bill struct {
	Items []BillItem `json:"items"`
	Total float64    `json:"total"`
}
