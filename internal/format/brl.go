// Package format renders listing values for email merge fields.
package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Price renders a sale price in the Brazilian convention, e.g. 470000 →
// "470.000,00". A missing price renders as "0,00" so templates never see an
// empty field.
func Price(v *float64) string {
	if v == nil {
		return "0,00"
	}
	return printer.Sprint(number.Decimal(*v, number.Scale(2)))
}
