package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/webprobe/internal/domain"
)

// ItemRepo — элементы данных веб-мониторинга вместе со статусом хоста.
type ItemRepo struct {
	pool *pgxpool.Pool
}

// NewItemRepo создаёт новый ItemRepo.
func NewItemRepo(pool *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

// ScenarioItems возвращает элементы сценария: скорость, последний шаг, ошибка.
func (r *ItemRepo) ScenarioItems(ctx context.Context, scenarioID int64) ([]domain.HTTPItem, error) {
	query := `
		SELECT i.itemid, i.hostid, ti.type, i.value_type, i.status,
		       h.status, h.maintenance_status, h.maintenance_type
		FROM httptestitem ti
		JOIN items i ON i.itemid = ti.itemid
		JOIN hosts h ON h.hostid = i.hostid
		WHERE ti.httptestid = $1
	`
	rows, err := r.pool.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("list scenario items: %w", err)
	}
	return scanItems(rows)
}

// StepItems возвращает элементы шага: код ответа, время, скорость.
func (r *ItemRepo) StepItems(ctx context.Context, stepID int64) ([]domain.HTTPItem, error) {
	query := `
		SELECT i.itemid, i.hostid, si.type, i.value_type, i.status,
		       h.status, h.maintenance_status, h.maintenance_type
		FROM httpstepitem si
		JOIN items i ON i.itemid = si.itemid
		JOIN hosts h ON h.hostid = i.hostid
		WHERE si.httpstepid = $1
	`
	rows, err := r.pool.Query(ctx, query, stepID)
	if err != nil {
		return nil, fmt.Errorf("list step items: %w", err)
	}
	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]domain.HTTPItem, error) {
	defer rows.Close()

	var items []domain.HTTPItem
	for rows.Next() {
		var it domain.HTTPItem
		err := rows.Scan(
			&it.ItemID,
			&it.HostID,
			&it.Type,
			&it.ValueType,
			&it.Status,
			&it.HostStatus,
			&it.MaintenanceStatus,
			&it.MaintenanceType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
