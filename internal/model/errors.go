package model

import (
	"errors"
)

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInventoryMissing = errors.New("inventory file not found")
	ErrInventoryEmpty   = errors.New("inventory is empty")
	ErrMalformedLine    = errors.New("malformed inventory line")
)
