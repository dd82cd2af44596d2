package nlmongo

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	uri            string
	database       string
	connectTimeout time.Duration

	openAIKey     string
	openAIBaseURL string
	openAIModel   string

	sampleSize     int
	minConfidence  float64
	maxConcurrency int
	defaultLimit   int64

	logger *zap.Logger
}

// WithMongo configures the MongoDB connection. Required.
func WithMongo(uri, database string) Option {
	return optionFunc(func(c *clientConfig) {
		c.uri = uri
		c.database = database
	})
}

// WithConnectTimeout bounds the initial MongoDB connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.connectTimeout = d
	})
}

// WithOpenAI configures an OpenAI-compatible translation provider.
// Without a provider the client still serves uploads, schema extraction, and
// insights; Ask returns an error.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		c.openAIModel = model
	})
}

// WithOpenAIBaseURL points the provider at a non-default endpoint, such as a
// local model server with an OpenAI-compatible API.
func WithOpenAIBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIBaseURL = url
	})
}

// WithInference tunes relationship detection: how many documents each overlap
// check samples and the minimum confidence a relationship must reach.
func WithInference(sampleSize int, minConfidence float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.sampleSize = sampleSize
		c.minConfidence = minConfidence
	})
}

// WithMaxConcurrency bounds how many overlap samples run in parallel.
func WithMaxConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConcurrency = n
	})
}

// WithDefaultLimit caps find results when a translation names no limit.
func WithDefaultLimit(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = n
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = logger
	})
}
