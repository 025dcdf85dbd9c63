package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatAmount displays an amount in a currency, like "€1,050.00".
// Unknown currency codes are displayed after the plain amount.
func formatAmount(d decimal.Decimal, code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		s := d.StringFixedBank(2)
		if code != "" {
			s += " " + code
		}
		return s
	}
	units := d.Shift(int32(c.Fraction)).RoundBank(0).IntPart()
	return money.New(units, c.Code).Display()
}
