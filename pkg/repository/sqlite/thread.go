package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
)

const threadColumns = `id, member_key, petition_ids, label, summary, petition_count,
	total_supporters, fallback, created_at, updated_at`

type threadRepository struct {
	db *sql.DB
}

func scanThread(row rowScanner) (*model.Thread, error) {
	var (
		t                    model.Thread
		petitionIDs          string
		fallback             int
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&t.ID, &t.MemberKey, &petitionIDs, &t.Label, &t.Summary, &t.PetitionCount,
		&t.TotalSupporters, &fallback, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(petitionIDs), &t.PetitionIDs); err != nil {
		return nil, goerr.Wrap(err, "failed to decode thread petition ids", goerr.V("threadID", t.ID))
	}
	t.Fallback = fallback != 0
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *threadRepository) Create(ctx context.Context, thread *model.Thread) (*model.Thread, error) {
	created := thread.Copy()
	if created.ID == "" {
		created.ID = model.NewThreadID()
	}
	if created.MemberKey == "" {
		created.MemberKey = model.MemberKey(created.PetitionIDs)
	}

	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	ids, err := json.Marshal(created.PetitionIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode thread petition ids")
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO threads (`+threadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.MemberKey, string(ids), created.Label, created.Summary,
		created.PetitionCount, created.TotalSupporters, boolToInt(created.Fallback),
		toUnix(created.CreatedAt), toUnix(created.UpdatedAt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert thread", goerr.V("threadID", created.ID))
	}

	return created, nil
}

func (r *threadRepository) Update(ctx context.Context, thread *model.Thread) (*model.Thread, error) {
	updated := thread.Copy()
	updated.MemberKey = model.MemberKey(updated.PetitionIDs)

	ids, err := json.Marshal(updated.PetitionIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode thread petition ids")
	}

	res, err := r.db.ExecContext(ctx, `UPDATE threads
		SET member_key = ?, petition_ids = ?, label = ?, summary = ?, petition_count = ?,
			total_supporters = ?, fallback = ?, updated_at = ?
		WHERE id = ?`,
		updated.MemberKey, string(ids), updated.Label, updated.Summary, updated.PetitionCount,
		updated.TotalSupporters, boolToInt(updated.Fallback), toUnix(time.Now()),
		updated.ID,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update thread", goerr.V("threadID", updated.ID))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", updated.ID))
	}

	return r.Get(ctx, updated.ID)
}

func (r *threadRepository) Get(ctx context.Context, id model.ThreadID) (*model.Thread, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = ?`, id)
	t, err := scanThread(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", id))
		}
		return nil, goerr.Wrap(err, "failed to get thread", goerr.V("threadID", id))
	}
	return t, nil
}

func (r *threadRepository) List(ctx context.Context) ([]*model.Thread, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+threadColumns+` FROM threads
		ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query threads")
	}
	defer rows.Close()

	threads := make([]*model.Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan thread")
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate threads")
	}
	return threads, nil
}

func (r *threadRepository) FindByMemberKey(ctx context.Context, memberKey string) (*model.Thread, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads
		WHERE member_key = ? ORDER BY created_at ASC LIMIT 1`, memberKey)
	t, err := scanThread(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to find thread by member key", goerr.V("memberKey", memberKey))
	}
	return t, nil
}

func (r *threadRepository) Delete(ctx context.Context, id model.ThreadID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete thread", goerr.V("threadID", id))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", id))
	}
	return nil
}
