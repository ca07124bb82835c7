package pensieve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pensieve-cloud/pensieve/internal/db"
	dbRedis "github.com/pensieve-cloud/pensieve/internal/db/redis"
	"github.com/pensieve-cloud/pensieve/internal/domain"
	domret "github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
	contentrepo "github.com/pensieve-cloud/pensieve/internal/repository/content"
	vectorrepo "github.com/pensieve-cloud/pensieve/internal/repository/vector"
	healthuc "github.com/pensieve-cloud/pensieve/internal/usecase/health"
	retrievaluc "github.com/pensieve-cloud/pensieve/internal/usecase/retrieval"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultModel            = "intfloat/multilingual-e5-large"
	defaultScoreThreshold   = 0.5
)

// Internal interfaces so tests can substitute the wired services.
type retrievalUseCase interface {
	Fetch(ctx context.Context, req domret.Request) ([]domret.Chunk, error)
	FetchRecent(ctx context.Context, requesterID, conversationID string, maxMessages int) ([]domret.Chunk, error)
	FetchLatest(ctx context.Context, requesterID, conversationID string) (*domret.Chunk, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the pensieve SDK entry point.
type Client struct {
	store     db.Store
	pool      *pgxpool.Pool
	retSvc    retrievalUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a pensieve Client and connects to the backing stores.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		model:          defaultModel,
		scoreThreshold: defaultScoreThreshold,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("pensieve: vector index address required (use WithRedis)")
	}
	if cfg.contentDSN == "" {
		return nil, errors.New("pensieve: content store DSN required (use WithContentDSN)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("pensieve: create index store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("pensieve: vector index not ready: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.contentDSN)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("pensieve: connect content store: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		pool.Close()
		store.Close()
		return nil, err
	}

	return wireClient(store, pool, cfg, obs)
}

func wireClient(store db.Store, pool *pgxpool.Pool, cfg *clientConfig, obs *observer) (*Client, error) {
	var domEmb domain.Embedder = &noopEmbedder{}
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
		if cfg.queryInstruction != "" {
			domEmb = domain.NewInstructionEmbedder(domEmb, cfg.queryInstruction)
		}
	}

	contentStore := contentrepo.New(pool)
	vectorIndex := vectorrepo.New(store, cfg.model, nil)

	registry, err := retrievaluc.DefaultRegistry(contentStore, contentStore)
	if err != nil {
		return nil, fmt.Errorf("pensieve: build extraction registry: %w", err)
	}

	retSvc := retrievaluc.New(domEmb, vectorIndex, registry, cfg.scoreThreshold)
	healthSvc := healthuc.New(store, pool, nil)

	return &Client{
		store:     store,
		pool:      pool,
		retSvc:    retSvc,
		healthSvc: healthSvc,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks vector index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Query describes one retrieval request.
type Query struct {
	// Text is the natural-language query. Required.
	Text string
	// UserID scopes the search to one user's collection. Required.
	UserID string
	// Filters restricts hits by metadata. Keys map to scalar values,
	// lists of accepted values, or {gt, gte, lt, lte} range maps with
	// numeric or RFC 3339 bounds.
	Filters map[string]any
	// Limit caps the number of results. Defaults to 100.
	Limit int
}

// Retrieve embeds the query, searches the user's collection and joins hits
// against their authoritative content.
func (c *Client) Retrieve(ctx context.Context, q Query) (chunks []Chunk, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	filters, err := filter.FromMap(q.Filters)
	if err != nil {
		return nil, err
	}
	req, err := domret.NewRequest(q.Text, q.UserID, filters, q.Limit)
	if err != nil {
		return nil, err
	}

	resolved, err := c.retSvc.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return chunksFromDomain(resolved), nil
}

// Recent returns the newest chat messages of one conversation, newest
// first, without embedding or similarity search.
func (c *Client) Recent(ctx context.Context, userID, conversationID string, limit int) (chunks []Chunk, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recent", start, err) }()

	resolved, err := c.retSvc.FetchRecent(ctx, userID, conversationID, limit)
	if err != nil {
		return nil, err
	}
	return chunksFromDomain(resolved), nil
}

// Latest returns the single newest chat message of one conversation, or
// nil when the conversation has none.
func (c *Client) Latest(ctx context.Context, userID, conversationID string) (chunk *Chunk, err error) {
	start := time.Now()
	defer func() { c.obs.observe("latest", start, err) }()

	resolved, err := c.retSvc.FetchLatest(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	ch := chunkFromDomain(*resolved)
	return &ch, nil
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // component -> "ok"/"error"
}

// Health checks the health of all backing stores.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"pensieve: embedder not configured (use WithEmbedder for Retrieve)",
	)
}
