// Package plans holds the fixed catalog of token plans. The catalog is an
// in-code table; callers receive copies and can never mutate it.
package plans

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Plan is one purchasable token bundle.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Tokens   int64    `json:"tokens"`
	Rate     float64  `json:"rate"`
	RateText string   `json:"rateText"`
	Benefits []string `json:"benefits"`
	Fees     string   `json:"fees"`
}

const (
	standardFees = "Cliente solicita contato: 3 moedas\nProfissional escolhe serviço: 5 moedas"
	reducedFees  = "Cliente solicita contato: 2 moedas\nProfissional escolhe serviço: 4 moedas"
)

var catalog = []Plan{
	{
		ID: "essencial", Name: "ESSENCIAL", Price: 25, Tokens: 25, Rate: 1,
		Fees: standardFees,
	},
	{
		ID: "pro", Name: "PRO", Price: 60, Tokens: 75, Rate: 0.8,
		Fees: standardFees,
	},
	{
		ID: "vip", Name: "VIP", Price: 100, Tokens: 150, Rate: 0.67,
		Benefits: []string{
			"Ser listado nas indicações do sistema",
			"Aparecer no destaque de sua categoria",
		},
		Fees: reducedFees,
	},
	{
		ID: "pirituba", Name: "PIRITUBA", Price: 150, Tokens: 300, Rate: 0.5,
		Benefits: []string{
			"Ser listado nas indicações do sistema",
			"Aparecer no destaque na página inicial",
			"Aparecer no destaque de sua categoria",
			"Participar da opção \"Me surpreenda\"",
		},
		Fees: reducedFees,
	},
}

var (
	byID    = make(map[string]int, len(catalog))
	lower   = cases.Lower(language.Und)
	printer = message.NewPrinter(language.BrazilianPortuguese)
)

func init() {
	for i := range catalog {
		catalog[i].RateText = FormatDecimal(catalog[i].Rate)
		byID[catalog[i].ID] = i
	}
}

// NormalizeID trims and case-folds a client-supplied plan id.
func NormalizeID(id string) string {
	return lower.String(strings.TrimSpace(id))
}

// Lookup returns the plan for id (case-insensitive) and whether it exists.
func Lookup(id string) (Plan, bool) {
	i, ok := byID[NormalizeID(id)]
	if !ok {
		return Plan{}, false
	}
	return clone(catalog[i]), true
}

// All returns every plan in display order.
func All() []Plan {
	out := make([]Plan, len(catalog))
	for i, p := range catalog {
		out[i] = clone(p)
	}
	return out
}

// FormatDecimal renders v with two decimals using pt-BR separators ("0,67").
func FormatDecimal(v float64) string {
	return printer.Sprint(number.Decimal(v, number.Scale(2)))
}

// FormatBRL renders a price as Brazilian reais ("R$ 100,00").
func FormatBRL(v float64) string {
	return "R$ " + FormatDecimal(v)
}

func clone(p Plan) Plan {
	if p.Benefits != nil {
		p.Benefits = append([]string(nil), p.Benefits...)
	} else {
		p.Benefits = []string{}
	}
	return p
}
