package esodm

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esodm/internal/mapping"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addresses  []string
	username   string
	password   string
	apiKey     string
	transport  http.RoundTripper
	maxRetries int

	writeTypeHints bool
	typeHintField  string
	indexPrefix    string
	runtimeFields  RuntimeFieldsLoader

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// RuntimeFieldsLoader resolves the runtime-field declaration an entity
// references through DocumentSpec.Mapping.RuntimeFieldsPath.
type RuntimeFieldsLoader interface {
	Load(path string) (map[string]any, error)
}

// RuntimeFieldsDir loads JSON or YAML declarations, resolving relative paths against dir.
func RuntimeFieldsDir(dir string) RuntimeFieldsLoader {
	return mapping.FileRuntimeFields{Dir: dir}
}

// WithAddresses sets the engine node URLs.
func WithAddresses(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addresses = addrs
	})
}

// WithCredentials enables basic authentication.
func WithCredentials(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithAPIKey enables API key authentication (base64 encoded id:key).
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithTransport replaces the HTTP transport used to reach the engine.
func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = rt
	})
}

// WithMaxRetries sets how often a failed engine call is retried. Default: 3.
func WithMaxRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetries = n
	})
}

// WithWriteTypeHints sets the default for writing the type hint field into
// documents and mappings. Entities may override it. Default: true.
func WithWriteTypeHints(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.writeTypeHints = enabled
	})
}

// WithTypeHintField renames the type hint field. Default: _class.
func WithTypeHintField(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.typeHintField = name
	})
}

// WithIndexPrefix prepends prefix to every index name resolved by the client.
func WithIndexPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexPrefix = prefix
	})
}

// WithRuntimeFieldsLoader sets the loader for runtime-field declarations.
func WithRuntimeFieldsLoader(l RuntimeFieldsLoader) Option {
	return optionFunc(func(c *clientConfig) {
		c.runtimeFields = l
	})
}

// WithLogger enables structured logging of engine calls.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithRegisterer registers client metrics (engine calls and mapping builds)
// on the given registerer. Pass nil to disable (default).
func WithRegisterer(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
