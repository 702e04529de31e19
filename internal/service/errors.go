package service

import "errors"

// Сентинельные ошибки бизнес-слоя; HTTP-слой маппит их в статус-коды
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("amount below minimum")
)
