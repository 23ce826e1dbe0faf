package service

import "errors"

// Ошибки бизнес-логики. Оборачиваются через %w, проверять через errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)
