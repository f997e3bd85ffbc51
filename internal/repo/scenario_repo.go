package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/webprobe/internal/domain"
)

// ScenarioRepo — конфигурация веб-сценариев: сценарии, шаги, поля.
type ScenarioRepo struct {
	pool *pgxpool.Pool
}

// NewScenarioRepo создаёт новый ScenarioRepo.
func NewScenarioRepo(pool *pgxpool.Pool) *ScenarioRepo {
	return &ScenarioRepo{pool: pool}
}

// LoadScenario возвращает сценарий вместе с хостом.
func (r *ScenarioRepo) LoadScenario(ctx context.Context, id int64) (*domain.WebScenario, error) {
	query := `
		SELECT t.httptestid, t.name, t.agent, t.authentication, t.http_user, t.http_password,
		       t.http_proxy, t.retries, t.ssl_cert_file, t.ssl_key_file, t.ssl_key_password,
		       t.verify_peer, t.verify_host, t.delay,
		       h.hostid, h.host, h.name, h.ip, h.dns, h.port, h.useip, h.status
		FROM httptest t
		JOIN hosts h ON h.hostid = t.hostid
		WHERE t.httptestid = $1
	`

	var s domain.WebScenario
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.Agent,
		&s.Authentication,
		&s.HTTPUser,
		&s.HTTPPassword,
		&s.HTTPProxy,
		&s.Retries,
		&s.SSLCertFile,
		&s.SSLKeyFile,
		&s.SSLKeyPassword,
		&s.VerifyPeer,
		&s.VerifyHost,
		&s.Delay,
		&s.Host.ID,
		&s.Host.Host,
		&s.Host.Name,
		&s.Host.IP,
		&s.Host.DNS,
		&s.Host.Port,
		&s.Host.UseIP,
		&s.Host.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan scenario: %w", err)
	}
	s.HostID = s.Host.ID

	return &s, nil
}

// LoadSteps возвращает шаги сценария по возрастанию номера.
func (r *ScenarioRepo) LoadSteps(ctx context.Context, scenarioID int64) ([]domain.WebScenarioStep, error) {
	query := `
		SELECT httpstepid, httptestid, no, name, url, timeout, posts, required,
		       status_codes, post_type, follow_redirects, retrieve_mode
		FROM httpstep
		WHERE httptestid = $1
		ORDER BY no
	`
	rows, err := r.pool.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.WebScenarioStep
	for rows.Next() {
		var s domain.WebScenarioStep
		err := rows.Scan(
			&s.ID,
			&s.ScenarioID,
			&s.No,
			&s.Name,
			&s.URL,
			&s.Timeout,
			&s.Posts,
			&s.Required,
			&s.StatusCodes,
			&s.PostType,
			&s.FollowRedirects,
			&s.RetrieveMode,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// LoadFields возвращает поля сценария или шага в порядке ID.
func (r *ScenarioRepo) LoadFields(ctx context.Context, ownerID int64, owner domain.FieldOwner) ([]domain.Field, error) {
	query, err := fieldsQuery(owner)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s fields: %w", owner, err)
	}
	defer rows.Close()

	var fields []domain.Field
	for rows.Next() {
		var f domain.Field
		if err := rows.Scan(&f.ID, &f.Kind, &f.Name, &f.Value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func fieldsQuery(owner domain.FieldOwner) (string, error) {
	switch owner {
	case domain.OwnerScenario:
		return `
			SELECT httptest_fieldid, type, name, value
			FROM httptest_field
			WHERE httptestid = $1
			ORDER BY httptest_fieldid
		`, nil
	case domain.OwnerStep:
		return `
			SELECT httpstep_fieldid, type, name, value
			FROM httpstep_field
			WHERE httpstepid = $1
			ORDER BY httpstep_fieldid
		`, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOwner, owner)
	}
}
