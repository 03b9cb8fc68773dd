// Package neighborhood holds the curated Porto Alegre adjacency table used
// when a listing has no coordinates: listings in an adjacent neighborhood are
// considered interchangeable with the target's own.
package neighborhood

import "github.com/dev-urban/mailchimp-automation/internal/normalize"

// adjacency maps a normalized neighborhood key to its neighbor list in
// display order. Matching is a set-membership test, so the order carries no
// weight there. A neighborhood never lists itself; AllowedKeys adds the own
// key explicitly.
var adjacency = map[string][]string{
	"moinhosdevento":   {"Bela Vista", "Mont'Serrat", "Independência", "Auxiliadora", "Rio Branco"},
	"belavista":        {"Moinhos de Vento", "Mont'Serrat", "Petrópolis", "Rio Branco", "Três Figueiras"},
	"montserrat":       {"Moinhos de Vento", "Bela Vista", "Auxiliadora", "Petrópolis"},
	"auxiliadora":      {"Moinhos de Vento", "Mont'Serrat", "Higienópolis", "Rio Branco"},
	"independencia":    {"Moinhos de Vento", "Floresta", "Centro Histórico", "Bom Fim"},
	"riobranco":        {"Moinhos de Vento", "Bela Vista", "Auxiliadora", "Bom Fim", "Santa Cecília"},
	"petropolis":       {"Bela Vista", "Mont'Serrat", "Três Figueiras", "Jardim Botânico", "Santa Cecília"},
	"tresfigueiras":    {"Bela Vista", "Petrópolis", "Chácara das Pedras", "Boa Vista"},
	"chacaradaspedras": {"Três Figueiras", "Boa Vista", "Jardim do Salso"},
	"higienopolis":     {"Auxiliadora", "Passo d'Areia", "São João", "Floresta"},
	"bomfim":           {"Independência", "Rio Branco", "Farroupilha", "Cidade Baixa", "Santana"},
	"centrohistorico":  {"Independência", "Floresta", "Cidade Baixa", "Praia de Belas"},
	"floresta":         {"Independência", "Centro Histórico", "Higienópolis", "São Geraldo", "Navegantes"},
	"cidadebaixa":      {"Centro Histórico", "Bom Fim", "Menino Deus", "Azenha"},
	"meninodeus":       {"Cidade Baixa", "Azenha", "Praia de Belas"},
	"santacecilia":     {"Rio Branco", "Petrópolis", "Santana"},
	"santana":          {"Bom Fim", "Santa Cecília", "Azenha", "Farroupilha"},
	"jardimbotanico":   {"Petrópolis", "Jardim do Salso", "Partenon"},
}

// Neighbors returns the curated neighbor list for an area name, in display
// order. ok is false when the area has no adjacency entry, which callers
// must treat as "exact match only", not as an error.
func Neighbors(area string) (neighbors []string, ok bool) {
	neighbors, ok = adjacency[normalize.Key(area)]
	return neighbors, ok
}

// AllowedKeys returns the set of normalized keys a candidate's neighborhood
// may match when the target sits in area: the area's own key plus the keys
// of its curated neighbors. An area without an adjacency entry allows only
// itself. A blank area returns nil, meaning nothing can match.
func AllowedKeys(area string) map[string]struct{} {
	own := normalize.Key(area)
	if own == "" {
		return nil
	}

	allowed := map[string]struct{}{own: {}}
	for _, n := range adjacency[own] {
		allowed[normalize.Key(n)] = struct{}{}
	}
	return allowed
}
