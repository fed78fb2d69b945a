package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	echo_neo4j "github.com/dev-mohitbeniwal/echo/authz/model/neo4j"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/cache"
	"github.com/dev-mohitbeniwal/echo/authz/telemetry"
)

const DefaultPageSize = 30

// PolicyStore is the read side of the policy store used to rebuild the cache.
type PolicyStore interface {
	ListUrns(ctx context.Context, entityType string, start, count int, actor string) (*model.ListUrnsResult, error)
	BatchGet(ctx context.Context, urns []string, actor string) (map[string]*model.Entity, error)
}

// Publisher receives a fully built index at the end of a successful cycle.
type Publisher interface {
	Publish(index *cache.PolicyIndex)
}

type Status string

const (
	StatusSucceeded       Status = "succeeded"
	StatusFetchFailed     Status = "fetch_failed"
	StatusIntegrityFailed Status = "integrity_failed"
	StatusFailed          Status = "failed"
)

// Outcome describes one refresh cycle. Policies is only meaningful when the
// cycle succeeded.
type Outcome struct {
	Status     Status        `json:"status"`
	Policies   int           `json:"policies"`
	Pages      int           `json:"pages"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
	Err        error         `json:"-"`
}

func (o Outcome) Published() bool {
	return o.Status == StatusSucceeded
}

type Config struct {
	EntityType  string
	PageSize    int
	SystemActor string
}

// Job rebuilds the policy index from the store. A cycle either publishes a
// complete index or leaves the previous one in place.
type Job struct {
	store     PolicyStore
	publisher Publisher
	cfg       Config
	metrics   *telemetry.Metrics
}

func NewJob(store PolicyStore, publisher Publisher, cfg Config) *Job {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.EntityType == "" {
		cfg.EntityType = echo_neo4j.EntityTypePolicy
	}
	return &Job{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		metrics:   telemetry.Default(),
	}
}

// Run executes one refresh cycle. It never panics; every failure is reported
// through the returned Outcome.
func (j *Job) Run(ctx context.Context) (outcome Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{
				Status: StatusFailed,
				Err:    fmt.Errorf("policy cache refresh panicked: %v", r),
			}
		}
		outcome.Duration = time.Since(start)
		outcome.FinishedAt = time.Now()
		j.metrics.RecordRefresh(ctx, string(outcome.Status), outcome.Published(), outcome.Policies, outcome.Duration)
	}()

	index, pages, err := j.load(ctx)
	if err != nil {
		return Outcome{Status: classify(err), Pages: pages, Err: err}
	}

	j.publisher.Publish(index)
	return Outcome{Status: StatusSucceeded, Policies: index.Len(), Pages: pages}
}

func (j *Job) load(ctx context.Context) (*cache.PolicyIndex, int, error) {
	builder := cache.NewBuilder()
	count := j.cfg.PageSize
	start, total, pages := 0, count, 0

	for start < total {
		if err := ctx.Err(); err != nil {
			return nil, pages, fmt.Errorf("%w: %w", authz_errors.ErrStoreUnavailable, err)
		}

		logger.Debug("Batch fetching policies", zap.Int("start", start), zap.Int("count", count))

		page, err := j.store.ListUrns(ctx, j.cfg.EntityType, start, count, j.cfg.SystemActor)
		if err != nil {
			return nil, pages, fmt.Errorf("%w: list policy urns (start=%d, count=%d): %w", authz_errors.ErrStoreUnavailable, start, count, err)
		}

		if len(page.Entities) > 0 {
			entities, err := j.store.BatchGet(ctx, page.Entities, j.cfg.SystemActor)
			if err != nil {
				return nil, pages, fmt.Errorf("%w: batch get %d policies: %w", authz_errors.ErrStoreUnavailable, len(page.Entities), err)
			}

			for _, urn := range page.Entities {
				entity, ok := entities[urn]
				if !ok {
					// Deleted between the list and the batch fetch.
					logger.Debug("Listed policy no longer in store, skipping", zap.String("urn", urn))
					continue
				}
				policy, err := model.PolicyFromEntity(entity)
				if err != nil {
					return nil, pages, err
				}
				builder.Add(policy)
			}
		}

		total = page.Total
		start += count
		pages++
	}

	return builder.Build(), pages, nil
}

func classify(err error) Status {
	switch {
	case errors.Is(err, authz_errors.ErrMissingPolicyPayload):
		return StatusIntegrityFailed
	case errors.Is(err, authz_errors.ErrStoreUnavailable):
		return StatusFetchFailed
	default:
		return StatusFailed
	}
}
