package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/actiontoken"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/rate"
	"github.com/MrEthical07/authcore/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Service] from its configuration and collaborators.
// Construction is allocation-only; no I/O happens until the first Service
// call.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory UserDirectory
	mailer    Mailer
	auditSink AuditSink
	now       func() time.Time
	built     bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis wires the shared KV store handle. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory wires the user-lookup collaborator. Required.
func (b *Builder) WithDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithMailer wires the email dispatcher. Optional; without it, account
// flows still run but no mail leaves the process.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink wires the audit sink. Only consulted when auditing is
// enabled in the configuration.
func (b *Builder) WithAuditSink(s AuditSink) *Builder {
	b.auditSink = s
	return b
}

// withNow pins the service clock. Test hook.
func (b *Builder) withNow(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration, constructs every component once, and
// returns the ready Service. A Builder can build at most one Service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("authcore: builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("authcore: redis client is required")
	}
	if b.directory == nil {
		return nil, errors.New("authcore: user directory is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	codec, err := jwt.NewManager(jwt.Config{
		SecretKey:  []byte(b.config.JWT.SecretKey),
		AccessTTL:  b.config.JWT.AccessTTL,
		RefreshTTL: b.config.JWT.RefreshTTL,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewStore(
		b.redis,
		b.config.Session.EncryptionKey,
		b.config.Session.HashKey,
		b.config.JWT.RefreshTTL,
	)
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = noopMailer{}
	}

	b.built = true
	return &Service{
		config: b.config,
		codec:  codec,
		signer: actiontoken.NewSigner(
			[]byte(b.config.ActionToken.SecretKey),
			[]byte(b.config.ActionToken.Salt),
			now,
		),
		sessions:  sessions,
		limiter:   rate.New(b.redis, b.config.RateLimit.KeyPrefix, now),
		directory: b.directory,
		mailer:    mailer,
		audit:     newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:   NewMetrics(),
		now:       now,
	}, nil
}
