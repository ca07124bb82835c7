package pensieve

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	contentDSN string

	embedder         Embedder
	model            string
	queryInstruction string

	scoreThreshold float64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithContentDSN sets the Postgres DSN of the authoritative content store.
func WithContentDSN(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.contentDSN = dsn
	})
}

// WithEmbedder sets the query embedding provider. Required for Retrieve;
// Recent and Latest work without it.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithModel sets the embedding model name used to derive per-user
// collection names. Defaults to "intfloat/multilingual-e5-large".
func WithModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = model
	})
}

// WithQueryInstruction prepends instruction text to queries before
// embedding, for instruction-tuned models.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithScoreThreshold drops similarity hits scoring below the threshold.
// Defaults to 0.5.
func WithScoreThreshold(threshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.scoreThreshold = threshold
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
