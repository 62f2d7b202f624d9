// ABOUTME: Maps agreement-number prefixes to the city the agreement was issued in.
// ABOUTME: Longest matching prefix wins; unknown prefixes resolve to "Undefined".

package locality

import "sort"

// Undefined is returned when no prefix in the table matches.
const Undefined = "Undefined"

// Table maps agreement-id prefixes to city names.
type Table map[string]string

// Default is the static prefix table shipped with the agent. Prefixes are
// the regional part of the agreement number.
func Default() Table {
	return Table{
		"22": "Барнаул", "32": "Брянск", "34": "Волга", "36": "Воронеж",
		"66": "Екатеринбург", "18": "Ижевск", "38": "Иркутск", "12": "Йошкар-Ола",
		"160": "Казань", "43": "Киров", "23": "Краснодар", "24": "Красноярск",
		"45": "Курган", "46": "Курск", "48": "Липецк", "27": "Магнитогорск",
		"481": "Мичуринск", "77": "Москва", "161": "Набережные Челны",
		"162": "Нижнекамск", "52": "Нижний Новгород", "54": "Новосибирск",
		"55": "Омск", "56": "Оренбург", "58": "Пенза", "59": "Пермь",
		"61": "Ростов-на-Дону", "62": "Рязань", "63": "Самара",
		"78": "Санкт-Петербург", "64": "Саратов", "30": "Селенгинск",
		"69": "Тверь", "70": "Томск", "71": "Тула", "72": "Тюмень",
		"303": "Улан-Удэ", "73": "Ульяновск", "10": "Уфа",
		"21": "Чебоксары", "17": "Челябинск", "76": "Ярославль",
	}
}

// Lookup resolves the city for an agreement id. Longer prefixes take
// precedence over shorter ones, so "481..." is Мичуринск rather than Липецк.
func (t Table) Lookup(agreementID string) string {
	prefixes := make([]string, 0, len(t))
	for p := range t {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})

	for _, p := range prefixes {
		if len(agreementID) >= len(p) && agreementID[:len(p)] == p {
			return t[p]
		}
	}
	return Undefined
}
