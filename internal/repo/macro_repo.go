package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/webprobe/internal/domain"
)

// MacroRepo — пользовательские макросы хостов и глобальные макросы.
type MacroRepo struct {
	pool *pgxpool.Pool
}

// NewMacroRepo создаёт новый MacroRepo.
func NewMacroRepo(pool *pgxpool.Pool) *MacroRepo {
	return &MacroRepo{pool: pool}
}

// UserMacros возвращает макросы хоста и глобальные макросы (HostID = 0).
func (r *MacroRepo) UserMacros(ctx context.Context, hostID int64) ([]domain.UserMacro, error) {
	query := `
		SELECT hostid, name, context, value, type
		FROM user_macros
		WHERE hostid = $1 OR hostid IS NULL
		ORDER BY hostid NULLS LAST, id
	`
	rows, err := r.pool.Query(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("list user macros: %w", err)
	}
	defer rows.Close()

	var macros []domain.UserMacro
	for rows.Next() {
		var m domain.UserMacro
		var owner *int64
		var macroContext *string
		if err := rows.Scan(&owner, &m.Name, &macroContext, &m.Value, &m.Type); err != nil {
			return nil, fmt.Errorf("scan user macro: %w", err)
		}
		if owner != nil {
			m.HostID = *owner
		}
		if macroContext != nil {
			m.Context = *macroContext
		}
		macros = append(macros, m)
	}
	return macros, rows.Err()
}
