package domain

// MacroType — тип пользовательского макроса.
type MacroType int

const (
	MacroText   MacroType = 0
	MacroSecret MacroType = 1
)

// UserMacro — пользовательский макрос {$NAME} или {$NAME:"context"}.
//
// HostID = 0 — глобальный макрос. Макрос хоста имеет приоритет над глобальным.
type UserMacro struct {
	HostID  int64     `json:"host_id"`
	Name    string    `json:"name"`
	Context string    `json:"context,omitempty"`
	Value   string    `json:"-"`
	Type    MacroType `json:"type"`
}
