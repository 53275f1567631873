package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
)

func runPetitionRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Create assigns ID and keeps CreatedAt", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Petition().Create(ctx, &model.Petition{
			Title:       "Pothole on MG Road",
			Description: "Large pothole near the bus stop",
			Category:    "Infrastructure",
			Location:    "Bengaluru",
			CreatedBy:   "user-1",
			Supporters:  12,
			CreatedAt:   base,
		})
		gt.NoError(t, err).Required()

		gt.String(t, string(created.ID)).NotEqual("")
		gt.Value(t, created.Title).Equal("Pothole on MG Road")
		gt.Value(t, created.Supporters).Equal(int64(12))
		gt.Bool(t, created.CreatedAt.Equal(base)).True()
		gt.Bool(t, created.UpdatedAt.IsZero()).False()
	})

	t.Run("Get retrieves stored petition", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Petition().Create(ctx, &model.Petition{
			Title:     "Broken streetlights",
			Location:  "Pune",
			CreatedAt: base,
		})
		gt.NoError(t, err).Required()

		got, err := repo.Petition().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(created.ID)
		gt.Value(t, got.Title).Equal("Broken streetlights")
		gt.Value(t, got.Location).Equal("Pune")
		gt.Bool(t, got.CreatedAt.Equal(base)).True()
		gt.Array(t, got.Embedding).Length(0)
	})

	t.Run("Get returns not found for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Petition().Get(context.Background(), "no-such-petition")
		gt.Value(t, err).NotNil()
		gt.Bool(t, isNotFound(err)).True()
	})

	t.Run("Update replaces fields and keeps the embedding", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Petition().Create(ctx, &model.Petition{
			Title:     "Water supply",
			CreatedAt: base,
		})
		gt.NoError(t, err).Required()

		fp := model.Fingerprint(created.CanonicalText())
		gt.NoError(t, repo.Petition().UpdateEmbedding(ctx, created.ID, []float32{1, 0, 0}, fp)).Required()

		created.Title = "Irregular water supply"
		created.Supporters = 40
		updated, err := repo.Petition().Update(ctx, created)
		gt.NoError(t, err).Required()

		gt.Value(t, updated.Title).Equal("Irregular water supply")
		gt.Value(t, updated.Supporters).Equal(int64(40))
		gt.Array(t, updated.Embedding).Length(3)
		gt.Value(t, updated.EmbeddingFingerprint).Equal(fp)
		// title changed, so the cached vector is stale
		gt.Bool(t, updated.HasFreshEmbedding(3)).False()
	})

	t.Run("Update returns not found for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Petition().Update(context.Background(), &model.Petition{ID: "missing", Title: "x"})
		gt.Value(t, err).NotNil()
		gt.Bool(t, isNotFound(err)).True()
	})

	t.Run("UpdateEmbedding stores vector and fingerprint", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Petition().Create(ctx, &model.Petition{
			Title:     "Garbage collection",
			Category:  "Sanitation",
			CreatedAt: base,
		})
		gt.NoError(t, err).Required()

		fp := model.Fingerprint(created.CanonicalText())
		err = repo.Petition().UpdateEmbedding(ctx, created.ID, []float32{0.25, 0.5, 0.75}, fp)
		gt.NoError(t, err).Required()

		got, err := repo.Petition().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Embedding).Length(3)
		gt.Value(t, got.Embedding[0]).Equal(float32(0.25))
		gt.Value(t, got.Embedding[1]).Equal(float32(0.5))
		gt.Value(t, got.Embedding[2]).Equal(float32(0.75))
		gt.Value(t, got.EmbeddingFingerprint).Equal(fp)
		gt.Bool(t, got.HasFreshEmbedding(3)).True()
	})

	t.Run("UpdateEmbedding returns not found for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Petition().UpdateEmbedding(context.Background(), "missing", []float32{1}, "fp")
		gt.Value(t, err).NotNil()
		gt.Bool(t, isNotFound(err)).True()
	})

	t.Run("ListRecent returns newest first with limit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var ids []model.PetitionID
		for i := 0; i < 4; i++ {
			p, err := repo.Petition().Create(ctx, &model.Petition{
				Title:     "Petition",
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			gt.NoError(t, err).Required()
			ids = append(ids, p.ID)
		}

		list, err := repo.Petition().ListRecent(ctx, 3)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(3)
		gt.Value(t, list[0].ID).Equal(ids[3])
		gt.Value(t, list[1].ID).Equal(ids[2])
		gt.Value(t, list[2].ID).Equal(ids[1])
	})

	t.Run("ListByCreator filters by creator", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		mine1, err := repo.Petition().Create(ctx, &model.Petition{Title: "a", CreatedBy: "alice", CreatedAt: base})
		gt.NoError(t, err).Required()
		_, err = repo.Petition().Create(ctx, &model.Petition{Title: "b", CreatedBy: "bob", CreatedAt: base.Add(time.Minute)})
		gt.NoError(t, err).Required()
		mine2, err := repo.Petition().Create(ctx, &model.Petition{Title: "c", CreatedBy: "alice", CreatedAt: base.Add(2 * time.Minute)})
		gt.NoError(t, err).Required()

		list, err := repo.Petition().ListByCreator(ctx, "alice", 10)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(2)
		gt.Value(t, list[0].ID).Equal(mine2.ID)
		gt.Value(t, list[1].ID).Equal(mine1.ID)
	})

	t.Run("FindByEmbedding ranks by cosine similarity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		vectors := map[string][]float32{
			"east":      {1, 0, 0},
			"northeast": {1, 1, 0},
			"north":     {0, 1, 0},
		}
		ids := map[string]model.PetitionID{}
		for title, v := range vectors {
			p, err := repo.Petition().Create(ctx, &model.Petition{Title: title, CreatedAt: base})
			gt.NoError(t, err).Required()
			gt.NoError(t, repo.Petition().UpdateEmbedding(ctx, p.ID, v, model.Fingerprint(p.CanonicalText()))).Required()
			ids[title] = p.ID
		}
		// petitions without a cached vector are never returned
		_, err := repo.Petition().Create(ctx, &model.Petition{Title: "unembedded", CreatedAt: base})
		gt.NoError(t, err).Required()

		found, err := repo.Petition().FindByEmbedding(ctx, []float32{0.9, 0.1, 0}, 2)
		gt.NoError(t, err).Required()
		gt.Array(t, found).Length(2)
		gt.Value(t, found[0].ID).Equal(ids["east"])
		gt.Value(t, found[1].ID).Equal(ids["northeast"])
	})
}

func TestMemoryPetitionRepository(t *testing.T) {
	runPetitionRepositoryTest(t, newMemoryRepository)
}

func TestSQLitePetitionRepository(t *testing.T) {
	runPetitionRepositoryTest(t, newSQLiteRepository)
}

func TestFirestorePetitionRepository(t *testing.T) {
	runPetitionRepositoryTest(t, newFirestoreRepository)
}
