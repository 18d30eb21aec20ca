package wordgate

import (
	"errors"

	internalaudit "github.com/wordgate/wordgate/internal/audit"
	"github.com/wordgate/wordgate/token"
	"github.com/wordgate/wordgate/wordlist"
)

// Builder assembles an Engine. Collaborators are injected explicitly; there
// are no process-wide singletons and nothing is read from the environment.
type Builder struct {
	config Config

	codes   CodeStore
	users   UserStore
	deliver Deliverer

	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCodeStore sets the verification-code store backend.
func (b *Builder) WithCodeStore(s CodeStore) *Builder {
	b.codes = s
	return b
}

// WithUserStore sets the identity store backend.
func (b *Builder) WithUserStore(s UserStore) *Builder {
	b.users = s
	return b
}

// WithDeliverer sets the code delivery collaborator.
func (b *Builder) WithDeliverer(d Deliverer) *Builder {
	b.deliver = d
	return b
}

// WithDelivererFunc is shorthand for WithDeliverer(DelivererFunc(f)).
func (b *Builder) WithDelivererFunc(f DelivererFunc) *Builder {
	b.deliver = f
	return b
}

// WithAuditSink attaches an audit sink. Auditing still requires
// Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the collaborators and returns an
// immutable Engine. A Builder can only be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.codes == nil {
		return nil, errors.New("code store required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.deliver == nil {
		return nil, errors.New("deliverer required")
	}

	generator, err := wordlist.New(cfg.Code.Language)
	if err != nil {
		return nil, err
	}

	issuer, err := token.New(token.Config{
		Secret:        cloneBytes(cfg.Token.Secret),
		SigningMethod: cfg.Token.SigningMethod,
		TTL:           cfg.Token.TTL,
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		codes:     b.codes,
		users:     b.users,
		deliver:   b.deliver,
		generator: generator,
		issuer:    issuer,
		metrics:   NewMetrics(cfg.Metrics),
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
