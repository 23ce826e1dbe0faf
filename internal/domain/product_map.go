package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProductMap упорядоченное отображение id -> Product.
// Порядок обхода совпадает с порядком вставки, как у JSON-документа на диске.
type ProductMap struct {
	keys  []string
	items map[string]Product
}

func NewProductMap(products ...Product) *ProductMap {
	m := &ProductMap{items: make(map[string]Product, len(products))}
	for _, p := range products {
		m.Set(p)
	}
	return m
}

func (m *ProductMap) Len() int { return len(m.keys) }

func (m *ProductMap) Has(id string) bool {
	_, ok := m.items[id]
	return ok
}

func (m *ProductMap) Get(id string) (Product, bool) {
	p, ok := m.items[id]
	return p, ok
}

// Set вставляет или заменяет запись по p.ID; существующий ключ сохраняет позицию
func (m *ProductMap) Set(p Product) {
	m.set(p.ID, p)
}

func (m *ProductMap) set(key string, p Product) {
	if m.items == nil {
		m.items = make(map[string]Product)
	}
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = p
}

// Delete удаляет запись и возвращает её
func (m *ProductMap) Delete(id string) (Product, bool) {
	p, ok := m.items[id]
	if !ok {
		return Product{}, false
	}
	delete(m.items, id)
	for i, k := range m.keys {
		if k == id {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return p, true
}

// Values возвращает копии записей в порядке вставки
func (m *ProductMap) Values() []Product {
	out := make([]Product, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.items[k])
	}
	return out
}

func (m *ProductMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.items[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON читает объект токенами, чтобы сохранить порядок ключей
func (m *ProductMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	out := NewProductMap()
	if tok == nil {
		*m = *out
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("product map: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("product map: expected key, got %v", tok)
		}
		var p Product
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("product map: decode %q: %w", key, err)
		}
		out.set(key, p)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = *out
	return nil
}
