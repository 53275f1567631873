package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/domain/model/config"
	"github.com/sangam-civic/sangam/pkg/similarity"
	"github.com/sangam-civic/sangam/pkg/utils/errutil"
	"github.com/sangam-civic/sangam/pkg/utils/logging"
)

// ConsolidateUseCase groups similar petitions into unified issue threads
type ConsolidateUseCase struct {
	repo        interfaces.Repository
	cache       *VectorCache
	summarizer  interfaces.Summarizer
	notifier    interfaces.Notifier
	threshold   float64
	strategy    similarity.Strategy
	corpusLimit int
	concurrency int
	timeout     time.Duration
	prune       bool
}

// ConsolidateOption adjusts a single consolidation run
type ConsolidateOption struct {
	// Prune deletes threads whose member set was not produced by this run.
	// It is OR-ed with the configured default.
	Prune bool
}

// ConsolidateResult summarizes a consolidation run for whoever triggered it
type ConsolidateResult struct {
	// Considered is the number of petitions loaded from the store
	Considered int
	// Embedded is the number of petitions that had a usable vector
	Embedded int
	Skipped  []model.SkippedPetition
	Threads  []*model.Thread
	Created  int
	Reused   int
	Pruned   int
}

type persistOutcome struct {
	threads []*model.Thread
	created []*model.Thread
	reused  int
	pruned  int
}

func NewConsolidateUseCase(repo interfaces.Repository, cache *VectorCache, summarizer interfaces.Summarizer, notifier interfaces.Notifier, cfg *config.EngineConfig) *ConsolidateUseCase {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	return &ConsolidateUseCase{
		repo:        repo,
		cache:       cache,
		summarizer:  summarizer,
		notifier:    notifier,
		threshold:   cfg.ClusterThreshold,
		strategy:    cfg.ClusterStrategy,
		corpusLimit: cfg.ClusterCorpusLimit,
		concurrency: cfg.MaxConcurrency,
		timeout:     cfg.EmbedTimeout,
		prune:       cfg.PruneStaleThreads,
	}
}

// Run loads the recent corpus, resolves every vector, clusters the petitions
// and persists one thread per cluster. Petitions that cannot be embedded are
// skipped and reported in the result.
func (uc *ConsolidateUseCase) Run(ctx context.Context, opt ConsolidateOption) (*ConsolidateResult, error) {
	logger := logging.From(ctx)

	petitions, err := uc.repo.Petition().ListRecent(ctx, uc.corpusLimit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load petitions")
	}

	// Star clustering depends on input order.
	sort.SliceStable(petitions, func(i, j int) bool {
		if !petitions[i].CreatedAt.Equal(petitions[j].CreatedAt) {
			return petitions[i].CreatedAt.Before(petitions[j].CreatedAt)
		}
		return petitions[i].ID < petitions[j].ID
	})

	resolved, skipped, err := ResolveVectors(ctx, uc.cache, petitions, uc.concurrency, uc.timeout)
	if err != nil {
		return nil, err
	}

	items := make([]similarity.Item, len(resolved))
	members := make(map[model.PetitionID]*model.Petition, len(resolved))
	for i, r := range resolved {
		items[i] = similarity.Item{ID: string(r.Petition.ID), Vector: r.Vector}
		members[r.Petition.ID] = r.Petition
	}

	clusters := similarity.BuildClusters(items, uc.threshold, uc.strategy)

	outcome, err := uc.persist(ctx, clusters, members, uc.prune || opt.Prune)
	if err != nil {
		return nil, err
	}

	if uc.notifier != nil && len(outcome.created) > 0 {
		if err := uc.notifier.NotifyThreads(ctx, outcome.created); err != nil {
			_ = errutil.Handle(ctx, err, "failed to notify new threads")
		}
	}

	result := &ConsolidateResult{
		Considered: len(petitions),
		Embedded:   len(resolved),
		Skipped:    skipped,
		Threads:    outcome.threads,
		Created:    len(outcome.created),
		Reused:     outcome.reused,
		Pruned:     outcome.pruned,
	}

	logger.Info("consolidation finished",
		"considered", result.Considered,
		"embedded", result.Embedded,
		"skipped", len(result.Skipped),
		"threads", len(result.Threads),
		"created", result.Created,
		"reused", result.Reused,
		"pruned", result.Pruned,
	)

	return result, nil
}

// PersistClusters stores one thread per cluster. A cluster whose member set
// already has a thread reuses it, and a reused thread still carrying the
// fallback label is summarized again; any other cluster is summarized and inserted.
// A summarizer failure falls back to a label built from the member titles.
func (uc *ConsolidateUseCase) PersistClusters(ctx context.Context, clusters []similarity.Cluster, members map[model.PetitionID]*model.Petition) ([]*model.Thread, error) {
	outcome, err := uc.persist(ctx, clusters, members, false)
	if err != nil {
		return nil, err
	}
	return outcome.threads, nil
}

// ListThreads returns the persisted threads, newest first
func (uc *ConsolidateUseCase) ListThreads(ctx context.Context) ([]*model.Thread, error) {
	threads, err := uc.repo.Thread().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list threads")
	}
	return threads, nil
}

func (uc *ConsolidateUseCase) persist(ctx context.Context, clusters []similarity.Cluster, members map[model.PetitionID]*model.Petition, prune bool) (*persistOutcome, error) {
	threadRepo := uc.repo.Thread()
	outcome := &persistOutcome{}
	keys := make(map[string]struct{}, len(clusters))

	for _, cluster := range clusters {
		ids := make([]model.PetitionID, 0, len(cluster.MemberIDs))
		petitions := make([]*model.Petition, 0, len(cluster.MemberIDs))
		var supporters int64
		for _, id := range cluster.MemberIDs {
			pid := model.PetitionID(id)
			ids = append(ids, pid)
			if p, ok := members[pid]; ok {
				petitions = append(petitions, p)
				supporters += p.Supporters
			} else {
				petitions = append(petitions, &model.Petition{ID: pid})
			}
		}

		key := model.MemberKey(ids)
		keys[key] = struct{}{}

		existing, err := threadRepo.FindByMemberKey(ctx, key)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to look up thread", goerr.V("memberKey", key))
		}

		if existing != nil {
			changed := false
			if existing.TotalSupporters != supporters || existing.PetitionCount != len(ids) {
				existing.TotalSupporters = supporters
				existing.PetitionCount = len(ids)
				changed = true
			}
			// A fallback label is retried until the summarizer produces one.
			if existing.Fallback && uc.summarizer != nil {
				if summary, fallback := uc.summarize(ctx, petitions); !fallback {
					existing.Label = summary.Label
					existing.Summary = summary.Summary
					existing.Fallback = false
					changed = true
				}
			}
			if changed {
				updated, err := threadRepo.Update(ctx, existing)
				if err != nil {
					return nil, goerr.Wrap(err, "failed to refresh thread", goerr.V("threadID", existing.ID))
				}
				existing = updated
			}
			outcome.threads = append(outcome.threads, existing)
			outcome.reused++
			continue
		}

		summary, fallback := uc.summarize(ctx, petitions)
		thread, err := threadRepo.Create(ctx, &model.Thread{
			MemberKey:       key,
			PetitionIDs:     ids,
			Label:           summary.Label,
			Summary:         summary.Summary,
			PetitionCount:   len(ids),
			TotalSupporters: supporters,
			Fallback:        fallback,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create thread", goerr.V("memberKey", key))
		}
		outcome.threads = append(outcome.threads, thread)
		outcome.created = append(outcome.created, thread)
	}

	if prune {
		all, err := threadRepo.List(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list threads for pruning")
		}
		for _, t := range all {
			if _, ok := keys[t.MemberKey]; ok {
				continue
			}
			if err := threadRepo.Delete(ctx, t.ID); err != nil {
				return nil, goerr.Wrap(err, "failed to prune thread", goerr.V("threadID", t.ID))
			}
			outcome.pruned++
		}
	}

	return outcome, nil
}

// summarize never fails: on any summarizer problem it returns the fallback
// summary and true
func (uc *ConsolidateUseCase) summarize(ctx context.Context, petitions []*model.Petition) (*model.ThreadSummary, bool) {
	if uc.summarizer == nil {
		return fallbackSummary(petitions), true
	}

	summary, err := uc.summarizer.Summarize(ctx, petitions)
	if err == nil && (summary == nil || strings.TrimSpace(summary.Label) == "") {
		err = goerr.New("summarizer returned an empty label")
	}
	if err != nil {
		err = goerr.Wrap(errors.Join(ErrSummarizerUnavailable, err), "using fallback thread label",
			goerr.V("members", len(petitions)))
		logging.From(ctx).Warn("summarizer unavailable", "error", err.Error())
		return fallbackSummary(petitions), true
	}

	if strings.TrimSpace(summary.Summary) == "" {
		summary.Summary = fallbackSummary(petitions).Summary
	}
	return summary, false
}

// fallbackSummary derives a label and summary from the member titles only
func fallbackSummary(petitions []*model.Petition) *model.ThreadSummary {
	first := ""
	if len(petitions) > 0 {
		first = strings.TrimSpace(petitions[0].Title)
		if first == "" {
			first = string(petitions[0].ID)
		}
	}
	return &model.ThreadSummary{
		Label:   "Related Issues: " + first,
		Summary: fmt.Sprintf("%d related petitions addressing similar concerns.", len(petitions)),
	}
}
