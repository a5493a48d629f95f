package app

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrMessageEmpty = errors.New("message content is empty")
)
