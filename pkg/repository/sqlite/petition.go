package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/similarity"
)

const petitionColumns = `id, title, description, category, location, created_by, supporters, status,
	embedding, embedding_fingerprint, created_at, updated_at`

type petitionRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPetition(row rowScanner) (*model.Petition, error) {
	var (
		p                    model.Petition
		embedding            []byte
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.Location, &p.CreatedBy,
		&p.Supporters, &p.Status, &embedding, &p.EmbeddingFingerprint, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	p.Embedding = decodeVector(embedding)
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return &p, nil
}

func (r *petitionRepository) Create(ctx context.Context, petition *model.Petition) (*model.Petition, error) {
	created := petition.Copy()
	if created.ID == "" {
		created.ID = model.NewPetitionID()
	}

	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `INSERT INTO petitions (`+petitionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Title, created.Description, created.Category, created.Location,
		created.CreatedBy, created.Supporters, created.Status,
		encodeVector(created.Embedding), created.EmbeddingFingerprint,
		toUnix(created.CreatedAt), toUnix(created.UpdatedAt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert petition", goerr.V("petitionID", created.ID))
	}

	return created, nil
}

func (r *petitionRepository) Update(ctx context.Context, petition *model.Petition) (*model.Petition, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE petitions
		SET title = ?, description = ?, category = ?, location = ?, created_by = ?,
			supporters = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		petition.Title, petition.Description, petition.Category, petition.Location,
		petition.CreatedBy, petition.Supporters, petition.Status, toUnix(time.Now()),
		petition.ID,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update petition", goerr.V("petitionID", petition.ID))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", petition.ID))
	}

	return r.Get(ctx, petition.ID)
}

func (r *petitionRepository) Get(ctx context.Context, id model.PetitionID) (*model.Petition, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+petitionColumns+` FROM petitions WHERE id = ?`, id)
	p, err := scanPetition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", id))
		}
		return nil, goerr.Wrap(err, "failed to get petition", goerr.V("petitionID", id))
	}
	return p, nil
}

func (r *petitionRepository) ListRecent(ctx context.Context, limit int) ([]*model.Petition, error) {
	return r.query(ctx, `SELECT `+petitionColumns+` FROM petitions
		ORDER BY created_at DESC, id ASC LIMIT ?`, sqlLimit(limit))
}

func (r *petitionRepository) ListByCreator(ctx context.Context, createdBy string, limit int) ([]*model.Petition, error) {
	return r.query(ctx, `SELECT `+petitionColumns+` FROM petitions
		WHERE created_by = ?
		ORDER BY created_at DESC, id ASC LIMIT ?`, createdBy, sqlLimit(limit))
}

// FindByEmbedding scans every embedded petition and ranks them in process;
// SQLite has no native vector index.
func (r *petitionRepository) FindByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*model.Petition, error) {
	candidates, err := r.query(ctx, `SELECT `+petitionColumns+` FROM petitions
		WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}

	scores := make(map[model.PetitionID]float64, len(candidates))
	for _, p := range candidates {
		scores[p.ID] = similarity.Cosine(embedding, p.Embedding)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := scores[candidates[i].ID], scores[candidates[j].ID]
		if si != sj {
			return si > sj
		}
		return candidates[i].ID < candidates[j].ID
	})

	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (r *petitionRepository) query(ctx context.Context, query string, args ...any) ([]*model.Petition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query petitions")
	}
	defer rows.Close()

	petitions := make([]*model.Petition, 0)
	for rows.Next() {
		p, err := scanPetition(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan petition")
		}
		petitions = append(petitions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate petitions")
	}
	return petitions, nil
}

func (r *petitionRepository) UpdateEmbedding(ctx context.Context, id model.PetitionID, embedding []float32, fingerprint string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE petitions SET embedding = ?, embedding_fingerprint = ? WHERE id = ?`,
		encodeVector(embedding), fingerprint, id)
	if err != nil {
		return goerr.Wrap(err, "failed to update petition embedding", goerr.V("petitionID", id))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", id))
	}
	return nil
}

// sqlLimit maps "no limit" to SQLite's -1
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
