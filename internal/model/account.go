package model

import "time"

type Account struct {
	ID        string
	Name      string
	Currency  Currency
	CreatedAt time.Time
	UpdatedAt time.Time
}
