/*
currency.go - Money display formatting

PURPOSE:
  Renders amounts the way the console displays them: currency symbol,
  two decimal places, locale thousand separators. Unmapped currency codes
  fall back to the raw code as a prefix rather than failing.
*/
package engine

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"EGP": "E£",
}

// CurrencySymbol returns the display symbol for a currency code, or the
// code itself when unmapped.
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount with its currency symbol, grouped
// thousands, and two decimals: FormatMoney(d(1234.5), "EUR") == "€1,234.50".
func FormatMoney(amount decimal.Decimal, currency string) string {
	f, _ := Round2(amount).Float64()
	return moneyPrinter.Sprintf("%s%.2f", CurrencySymbol(currency), f)
}
