package externalApi

import "errors"

var (
	ErrNotFound    = errors.New("error not found")
	ErrNoPriceData = errors.New("error no price data")
)
