// Package nlmongo is the embedded client: it wires the upload, query,
// schema, and insights services directly over a MongoDB connection, without
// the HTTP server.
package nlmongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbMongo "github.com/kestrel-data/nlmongo/internal/db/mongo"
	"github.com/kestrel-data/nlmongo/internal/domain"
	"github.com/kestrel-data/nlmongo/internal/inference"
	datasetrepo "github.com/kestrel-data/nlmongo/internal/repository/dataset"
	insightsrepo "github.com/kestrel-data/nlmongo/internal/repository/insights"
	queryrepo "github.com/kestrel-data/nlmongo/internal/repository/query"
	schemarepo "github.com/kestrel-data/nlmongo/internal/repository/schema"
	openaiTx "github.com/kestrel-data/nlmongo/internal/transport/openai"
	ingestuc "github.com/kestrel-data/nlmongo/internal/usecase/ingest"
	insightsuc "github.com/kestrel-data/nlmongo/internal/usecase/insights"
	queryuc "github.com/kestrel-data/nlmongo/internal/usecase/query"
	schemauc "github.com/kestrel-data/nlmongo/internal/usecase/schema"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the nlmongo SDK entry point.
type Client struct {
	store       *dbMongo.Store
	ingestSvc   *ingestuc.Service
	querySvc    *queryuc.Service
	schemaSvc   *schemauc.Service
	insightsSvc *insightsuc.Service
}

// New creates a Client and connects to MongoDB. The provided context is used
// for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		minConfidence: 0.3,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.uri == "" || cfg.database == "" {
		return nil, errors.New("nlmongo: mongo uri and database required (use WithMongo)")
	}

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:            cfg.uri,
		Database:       cfg.database,
		ConnectTimeout: cfg.connectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("nlmongo: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("nlmongo: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func wireClient(store *dbMongo.Store, cfg *clientConfig) *Client {
	schemaRepo := schemarepo.New(store)
	queryRepo := queryrepo.New(store)
	datasetRepo := datasetrepo.New(store)
	insightsRepo := insightsrepo.New(store)

	sampler := inference.NewSampler(schemaRepo, cfg.sampleSize, cfg.logger)
	engine := inference.NewEngine(sampler, cfg.logger)
	if cfg.maxConcurrency > 0 {
		engine = engine.WithMaxConcurrency(cfg.maxConcurrency)
	}

	schemaSvc := schemauc.New(schemaRepo, engine, cfg.minConfidence, cfg.logger)

	var querySvc *queryuc.Service
	if cfg.openAIKey != "" && cfg.openAIModel != "" {
		translator := openaiTx.NewTranslator(&openaiTx.Config{
			APIKey:   cfg.openAIKey,
			BaseURL:  cfg.openAIBaseURL,
			Model:    cfg.openAIModel,
			Provider: "openai",
			Logger:   cfg.logger,
		})
		querySvc = queryuc.New(schemaSvc, translator, queryRepo, cfg.defaultLimit, cfg.logger)
	}

	return &Client{
		store:       store,
		ingestSvc:   ingestuc.New(datasetRepo, cfg.logger),
		querySvc:    querySvc,
		schemaSvc:   schemaSvc,
		insightsSvc: insightsuc.New(insightsRepo, store, cfg.logger),
	}
}

// Close releases all resources.
func (c *Client) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Upload parses a CSV or JSON file and replaces the collection derived from
// its filename.
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (UploadResult, error) {
	res, err := c.ingestSvc.Upload(ctx, filename, content)
	if err != nil {
		return UploadResult{}, err
	}
	return uploadResultFromInternal(res), nil
}

// Ask translates a natural-language question into a validated query and
// executes it. Requires a translation provider (WithOpenAI). Optional
// collection names scope query generation to those collections.
func (c *Client) Ask(ctx context.Context, question string, collections ...string) (QueryResult, error) {
	if c.querySvc == nil {
		return QueryResult{}, domain.ErrTranslatorUnavailable
	}
	res, err := c.querySvc.Ask(ctx, question, collections...)
	if err != nil {
		return QueryResult{}, err
	}
	return queryResultFromInternal(res), nil
}

// Schema extracts the database layout and the relationships inferred from it.
func (c *Client) Schema(ctx context.Context) ([]SchemaCollection, []Relationship, error) {
	snap, rels, err := c.schemaSvc.Describe(ctx)
	if err != nil {
		return nil, nil, err
	}
	return collectionsFromSnapshot(snap), relationshipsFromInternal(rels), nil
}

// Insights analyzes the given fields of a collection, or every field of its
// first document when none are named.
func (c *Client) Insights(ctx context.Context, collection string, fields ...string) ([]ColumnInsight, error) {
	results, err := c.insightsSvc.Generate(ctx, collection, fields)
	if err != nil {
		return nil, err
	}
	return insightsFromInternal(results), nil
}

// DeleteCollection drops an uploaded collection.
func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	return c.ingestSvc.Delete(ctx, collection)
}
