package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/webprobe/internal/domain"
)

// DefaultClaimTimeout — через сколько захват сценария считается потерянным
// (воркер упал, не вернув сценарий в очередь).
const DefaultClaimTimeout = 2 * time.Hour

// ScheduleRepo — очередь проверок веб-сценариев.
//
// Сценарий выдаётся одному воркеру: NextDue захватывает строку
// через FOR UPDATE SKIP LOCKED и помечает claimed_at.
type ScheduleRepo struct {
	pool         *pgxpool.Pool
	claimTimeout time.Duration
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool, claimTimeout: DefaultClaimTimeout}
}

// NextDue захватывает один сценарий, время проверки которого наступило.
// Сценарии отключённых и немониторящихся хостов не выдаются.
func (r *ScheduleRepo) NextDue(ctx context.Context, now time.Time) (int64, bool, error) {
	query := `
		UPDATE httptest SET claimed_at = $1
		WHERE httptestid = (
			SELECT t.httptestid
			FROM httptest t
			JOIN hosts h ON h.hostid = t.hostid
			WHERE t.status = 0
			  AND h.status = 0
			  AND t.nextcheck <= $1
			  AND (t.claimed_at IS NULL OR t.claimed_at < $2)
			ORDER BY t.nextcheck
			LIMIT 1
			FOR UPDATE OF t SKIP LOCKED
		)
		RETURNING httptestid
	`

	var id int64
	err := r.pool.QueryRow(ctx, query, now, now.Add(-r.claimTimeout)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("claim due scenario: %w", err)
	}
	return id, true, nil
}

// Requeue освобождает сценарий и назначает следующую проверку через delay.
func (r *ScheduleRepo) Requeue(ctx context.Context, id int64, now time.Time, delay time.Duration) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE httptest SET nextcheck = $2, claimed_at = NULL WHERE httptestid = $1
	`, id, now.Add(delay))
	if err != nil {
		return fmt.Errorf("requeue scenario: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueNow переносит следующую проверку сценария на текущий момент.
// Выполняющийся сценарий не прерывается: его Requeue перезапишет время.
func (r *ScheduleRepo) RequeueNow(ctx context.Context, id int64, now time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE httptest SET nextcheck = $2 WHERE httptestid = $1 AND status = 0
	`, id, now)
	if err != nil {
		return fmt.Errorf("requeue scenario now: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDue возвращает сценарии, время проверки которых наступило.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduleEntry, error) {
	query := `
		SELECT t.httptestid, t.name, h.hostid, h.host, t.nextcheck, t.claimed_at
		FROM httptest t
		JOIN hosts h ON h.hostid = t.hostid
		WHERE t.status = 0
		  AND h.status = 0
		  AND t.nextcheck <= $1
		ORDER BY t.nextcheck
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due scenarios: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		var e domain.ScheduleEntry
		err := rows.Scan(&e.ScenarioID, &e.Name, &e.HostID, &e.Host, &e.NextCheck, &e.ClaimedAt)
		if err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
