package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/URMC/urHL7/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recordCols = `id, control_id, message_type, trigger_event, sending_app, sending_facility,
	version, sent_at, raw, received_at`

func (r *repoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.ControlID, &rec.MessageType, &rec.TriggerEvent,
		&rec.SendingApp, &rec.SendingFacility, &rec.Version, &rec.SentAt, &rec.Raw, &rec.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hl7_message (id, control_id, message_type, trigger_event, sending_app,
			sending_facility, version, sent_at, raw)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING received_at`,
		rec.ID, rec.ControlID, rec.MessageType, rec.TriggerEvent, rec.SendingApp,
		rec.SendingFacility, rec.Version, rec.SentAt, rec.Raw).Scan(&rec.ReceivedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM hl7_message WHERE id = $1`, id))
}

func (r *repoPG) GetByControlID(ctx context.Context, controlID string) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM hl7_message WHERE control_id = $1 ORDER BY received_at DESC LIMIT 1`, controlID))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM hl7_message WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	return r.Search(ctx, nil, limit, offset)
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	where, args := buildWhere(params)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hl7_message`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM hl7_message%s ORDER BY received_at DESC LIMIT $%d OFFSET $%d`, recordCols, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

// buildWhere turns recognised search parameters into an equality filter.
// Keys are sorted so the generated SQL is stable.
func buildWhere(params map[string]string) (string, []interface{}) {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if _, ok := searchParams[k]; ok && v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", nil
	}
	sort.Strings(keys)

	clauses := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		clauses[i] = fmt.Sprintf("%s = $%d", searchParams[k], i+1)
		args[i] = params[k]
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
