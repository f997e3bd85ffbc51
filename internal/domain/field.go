package domain

import "strings"

// FieldKind — тип поля сценария или шага.
type FieldKind int

const (
	FieldHeader     FieldKind = 0
	FieldVariable   FieldKind = 1
	FieldPostField  FieldKind = 2
	FieldQueryField FieldKind = 3
)

// String возвращает строковое представление FieldKind.
func (k FieldKind) String() string {
	switch k {
	case FieldHeader:
		return "header"
	case FieldVariable:
		return "variable"
	case FieldPostField:
		return "post_field"
	case FieldQueryField:
		return "query_field"
	default:
		return "unknown"
	}
}

// FieldOwner — кому принадлежат поля: сценарию или шагу.
type FieldOwner string

const (
	OwnerScenario FieldOwner = "scenario"
	OwnerStep     FieldOwner = "step"
)

// Field — запись поля из хранилища.
// Порядок полей задаётся возрастающим ID.
type Field struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Value string    `json:"value"`
	Kind  FieldKind `json:"kind"`
}

// Pair — пара ключ/значение после подстановок.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Pairs — упорядоченный список пар. Дубликаты ключей допустимы.
type Pairs []Pair

// Join склеивает пары: key<kvSep>value<pairSep>key<kvSep>value.
func (p Pairs) Join(kvSep, pairSep string) string {
	var sb strings.Builder
	for i, pair := range p {
		if i > 0 {
			sb.WriteString(pairSep)
		}
		sb.WriteString(pair.Key)
		sb.WriteString(kvSep)
		sb.WriteString(pair.Value)
	}
	return sb.String()
}

// Clone возвращает независимую копию списка.
func (p Pairs) Clone() Pairs {
	if p == nil {
		return nil
	}
	out := make(Pairs, len(p))
	copy(out, p)
	return out
}
