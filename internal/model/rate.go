package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate — курс покупки и продажи иностранной валюты на календарный день.
type ExchangeRate struct {
	Date         time.Time
	Buy          decimal.Decimal
	Sell         decimal.Decimal
	RegisteredBy string
	RegisteredAt time.Time
}

// Validate проверяет, что 0 < покупка <= продажа и курсы укладываются в четыре знака.
func (r *ExchangeRate) Validate() error {
	if !r.Buy.IsPositive() {
		return Validationf("buy rate must be greater than zero")
	}
	if !r.Sell.IsPositive() {
		return Validationf("sell rate must be greater than zero")
	}
	if !FitsScale(r.Buy, RateScale) || !FitsScale(r.Sell, RateScale) {
		return Validationf("exchange rates must have at most %d decimal places", RateScale)
	}
	if r.Sell.LessThan(r.Buy) {
		return Validationf("sell rate cannot be lower than buy rate")
	}
	return nil
}

// Convert переводит сумму из валюты from в валюту to.
// LOCAL→FOREIGN делится на курс продажи, FOREIGN→LOCAL умножается на курс покупки.
// Возвращает итоговую сумму, округлённую до сотых, и применённый курс.
func (r *ExchangeRate) Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, decimal.Decimal) {
	switch {
	case from == to:
		return amount, decimal.NewFromInt(1)
	case from == CurrencyLocal:
		return amount.Div(r.Sell).RoundBank(2), r.Sell
	default:
		return amount.Mul(r.Buy).RoundBank(2), r.Buy
	}
}

// LocalEquivalent оценивает сумму в локальной валюте по курсу продажи.
// Без курса возвращается номинал.
func LocalEquivalent(amount decimal.Decimal, c Currency, r *ExchangeRate) decimal.Decimal {
	if c == CurrencyLocal || r == nil {
		return amount
	}
	return amount.Mul(r.Sell)
}
