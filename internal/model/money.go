package model

import "github.com/shopspring/decimal"

// Точность хранения денежных сумм и ставок (знаков после запятой).
const (
	MoneyScale = 2
	RateScale  = 4
)

// FitsScale сообщает, что у значения нет значащих цифр дальше places знаков после запятой.
// Нули в конце допускаются: 10.500 укладывается в две цифры.
func FitsScale(v decimal.Decimal, places int32) bool {
	return v.Equal(v.Truncate(places))
}
