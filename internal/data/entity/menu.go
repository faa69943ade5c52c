package entity

import "github.com/shopspring/decimal"

type Food struct {
	Base
	Name        string          `db:"name"`
	Price       decimal.Decimal `db:"price"`
	IsAvailable bool            `db:"is_available"`
}

type Combo struct {
	Base
	Name        string          `db:"name"`
	Price       decimal.Decimal `db:"price"`
	IsAvailable bool            `db:"is_available"`
}
