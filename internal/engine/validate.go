package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// StatusCodeAllowed проверяет вхождение кода в список вида "200,301-302".
// Некорректный список ни с чем не совпадает.
func StatusCodeAllowed(list string, code int) bool {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return false
		}

		lo, hi, isRange := strings.Cut(item, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return false
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return false
			}
		}

		if code >= from && code <= to {
			return true
		}
	}
	return false
}

// MatchRequired проверяет, что шаблон найден в странице.
// Некорректное выражение считается ненайденным.
func MatchRequired(pattern string, page []byte) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.Match(page)
}
