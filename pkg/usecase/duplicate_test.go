package usecase_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/domain/model/config"
	"github.com/sangam-civic/sangam/pkg/repository/memory"
	"github.com/sangam-civic/sangam/pkg/usecase"
)

func newDuplicateUseCase(t *testing.T, repo *memory.Memory, embedder *mockEmbedder, mode config.CorpusMode) *usecase.DuplicateUseCase {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	cfg.ProbeCorpusMode = mode
	cfg.EmbedTimeout = time.Second
	cache := usecase.NewVectorCache(repo.Petition(), embedder,
		usecase.WithDimension(2), usecase.WithWriteBackDispatcher(syncWriteBack(t)))
	return usecase.NewDuplicateUseCase(repo.Petition(), embedder, cache, cfg)
}

func embedded(title string, vector []float32) *model.Petition {
	p := &model.Petition{ID: model.PetitionID(title), Title: title, Embedding: vector}
	p.EmbeddingFingerprint = model.Fingerprint(p.CanonicalText())
	return p
}

func TestDuplicateUseCase_FindBestMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("score equal to the threshold is not reported", func(t *testing.T) {
		embedder := newMockEmbedder(map[string][]float32{"draft": {1, 0}})
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		// cos([1,0],[3,4]) is exactly 0.6
		match, err := uc.FindBestMatch(ctx, "draft", []*model.Petition{embedded("existing", []float32{3, 4})}, "")
		gt.NoError(t, err).Required()
		gt.Value(t, match).Nil()
	})

	t.Run("score above the threshold is reported", func(t *testing.T) {
		embedder := newMockEmbedder(map[string][]float32{"draft": {1, 0}})
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		near := []float32{0.61, float32(math.Sqrt(1 - 0.61*0.61))}
		match, err := uc.FindBestMatch(ctx, "draft", []*model.Petition{embedded("existing", near)}, "")
		gt.NoError(t, err).Required()
		gt.Value(t, match).NotNil()
		gt.Value(t, match.PetitionID).Equal(model.PetitionID("existing"))
		gt.Value(t, match.Title).Equal("existing")
		gt.Number(t, match.Score).Greater(0.6)
	})

	t.Run("highest score wins and ties keep corpus order", func(t *testing.T) {
		embedder := newMockEmbedder(map[string][]float32{"draft": {1, 0}})
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		corpus := []*model.Petition{
			embedded("weak", []float32{3, 4}),
			embedded("first", []float32{4, 3}),
			embedded("second", []float32{4, 3}),
		}
		match, err := uc.FindBestMatch(ctx, "draft", corpus, "")
		gt.NoError(t, err).Required()
		gt.Value(t, match.PetitionID).Equal(model.PetitionID("first"))
	})

	t.Run("excluded petition is never matched", func(t *testing.T) {
		embedder := newMockEmbedder(map[string][]float32{"draft": {1, 0}})
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		match, err := uc.FindBestMatch(ctx, "draft", []*model.Petition{embedded("self", []float32{1, 0})}, "self")
		gt.NoError(t, err).Required()
		gt.Value(t, match).Nil()
	})

	t.Run("empty text matches nothing without provider call", func(t *testing.T) {
		embedder := newMockEmbedder(nil)
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		match, err := uc.FindBestMatch(ctx, "  ", []*model.Petition{embedded("a", []float32{1, 0})}, "")
		gt.NoError(t, err).Required()
		gt.Value(t, match).Nil()
		gt.Number(t, embedder.TotalCalls()).Equal(0)
	})

	t.Run("stale members are refreshed and failing ones ignored", func(t *testing.T) {
		embedder := newMockEmbedder(map[string][]float32{
			"draft": {1, 0},
			"stale": {1, 0},
		})
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		corpus := []*model.Petition{
			{ID: "broken", Title: "broken"},
			{ID: "stale", Title: "stale"},
		}
		match, err := uc.FindBestMatch(ctx, "draft", corpus, "")
		gt.NoError(t, err).Required()
		gt.Value(t, match.PetitionID).Equal(model.PetitionID("stale"))
		gt.Number(t, embedder.CallCount("stale")).Equal(1)
	})

	t.Run("candidate embedding failure is EmbeddingUnavailable", func(t *testing.T) {
		embedder := newMockEmbedder(nil)
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		_, err := uc.FindBestMatch(ctx, "draft", nil, "")
		gt.Bool(t, errors.Is(err, usecase.ErrEmbeddingUnavailable)).True()
	})
}

func TestDuplicateUseCase_Probe(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, repo *memory.Memory, title string, vector []float32) *model.Petition {
		t.Helper()
		p, err := repo.Petition().Create(ctx, &model.Petition{Title: title})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Petition().UpdateEmbedding(ctx, p.ID, vector, model.Fingerprint(p.CanonicalText()))).Required()
		return p
	}

	t.Run("recent corpus", func(t *testing.T) {
		repo := memory.New()
		lake := seed(t, repo, "Clean the lake", []float32{1, 0})
		seed(t, repo, "Bus shelter", []float32{0, 1})

		embedder := newMockEmbedder(map[string][]float32{"lake cleanup": {0.9, 0.1}})
		uc := newDuplicateUseCase(t, repo, embedder, config.CorpusModeRecent)

		result, err := uc.Probe(ctx, usecase.ProbeInput{DraftKey: "form-1", Text: "lake cleanup"})
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Degraded).False()
		gt.Value(t, result.Match).NotNil()
		gt.Value(t, result.Match.PetitionID).Equal(lake.ID)
	})

	t.Run("nearest corpus", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo, "Clean the lake", []float32{1, 0})
		bus := seed(t, repo, "Bus shelter", []float32{0, 1})

		embedder := newMockEmbedder(map[string][]float32{"shelter at bus stop": {0.1, 0.9}})
		uc := newDuplicateUseCase(t, repo, embedder, config.CorpusModeNearest)

		result, err := uc.Probe(ctx, usecase.ProbeInput{Text: "shelter at bus stop"})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Match.PetitionID).Equal(bus.ID)
	})

	t.Run("creator corpus only scans the author's petitions", func(t *testing.T) {
		repo := memory.New()
		own, err := repo.Petition().Create(ctx, &model.Petition{Title: "Clean the lake", CreatedBy: "alice"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Petition().UpdateEmbedding(ctx, own.ID, []float32{1, 0}, model.Fingerprint(own.CanonicalText()))).Required()
		other, err := repo.Petition().Create(ctx, &model.Petition{Title: "Lake cleanup drive", CreatedBy: "bob"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Petition().UpdateEmbedding(ctx, other.ID, []float32{0.9, 0.1}, model.Fingerprint(other.CanonicalText()))).Required()

		embedder := newMockEmbedder(map[string][]float32{"lake cleanup": {0.9, 0.1}})
		uc := newDuplicateUseCase(t, repo, embedder, config.CorpusModeCreator)

		result, err := uc.Probe(ctx, usecase.ProbeInput{Text: "lake cleanup", CreatedBy: "alice"})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Match).NotNil()
		gt.Value(t, result.Match.PetitionID).Equal(own.ID)

		result, err = uc.Probe(ctx, usecase.ProbeInput{Text: "lake cleanup", CreatedBy: "carol"})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Match).Nil()

		// no author: recent corpus
		result, err = uc.Probe(ctx, usecase.ProbeInput{Text: "lake cleanup"})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Match).NotNil()
		gt.Value(t, result.Match.PetitionID).Equal(other.ID)
	})

	t.Run("excluding the petition being edited", func(t *testing.T) {
		repo := memory.New()
		lake := seed(t, repo, "Clean the lake", []float32{1, 0})

		embedder := newMockEmbedder(map[string][]float32{"Clean the lake": {1, 0}})
		uc := newDuplicateUseCase(t, repo, embedder, config.CorpusModeRecent)

		result, err := uc.Probe(ctx, usecase.ProbeInput{Text: "Clean the lake", ExcludeID: lake.ID})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Match).Nil()
	})

	t.Run("provider outage degrades silently", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo, "Clean the lake", []float32{1, 0})

		embedder := newMockEmbedder(nil)
		embedder.embedFn = func(ctx context.Context, text string) ([]float32, error) {
			return nil, goerr.New("quota exceeded")
		}
		uc := newDuplicateUseCase(t, repo, embedder, config.CorpusModeRecent)

		result, err := uc.Probe(ctx, usecase.ProbeInput{Text: "lake"})
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Degraded).True()
		gt.Value(t, result.Match).Nil()
	})

	t.Run("empty draft", func(t *testing.T) {
		embedder := newMockEmbedder(nil)
		uc := newDuplicateUseCase(t, memory.New(), embedder, config.CorpusModeRecent)

		result, err := uc.Probe(ctx, usecase.ProbeInput{DraftKey: "form-1"})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Match).Nil()
		gt.Bool(t, result.Degraded).False()
		gt.Number(t, embedder.TotalCalls()).Equal(0)
	})

	t.Run("newer probe for the same draft supersedes the running one", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo, "Clean the lake", []float32{1, 0})

		started := make(chan struct{})
		embedder := newMockEmbedder(map[string][]float32{"lake cleanup": {1, 0}})
		embedder.embedFn = func(ctx context.Context, text string) ([]float32, error) {
			if text == "lake" {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return []float32{1, 0}, nil
		}
		uc := newDuplicateUseCase(t, repo, embedder, config.CorpusModeRecent)

		firstErr := make(chan error, 1)
		go func() {
			_, err := uc.Probe(ctx, usecase.ProbeInput{DraftKey: "form-1", Text: "lake"})
			firstErr <- err
		}()
		<-started

		result, err := uc.Probe(ctx, usecase.ProbeInput{DraftKey: "form-1", Text: "lake cleanup"})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Match).NotNil()

		select {
		case err := <-firstErr:
			gt.Bool(t, errors.Is(err, usecase.ErrProbeSuperseded)).True()
		case <-time.After(2 * time.Second):
			t.Fatal("superseded probe did not return")
		}
	})
}
