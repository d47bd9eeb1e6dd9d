package main

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"worktrust/internal/credential"
	credentialmetrics "worktrust/internal/credential/metrics"
	"worktrust/internal/credential/revocation"
	credentialstore "worktrust/internal/credential/store"
	"worktrust/internal/fraud"
	fraudmetrics "worktrust/internal/fraud/metrics"
	"worktrust/internal/platform/config"
	kafkaconsumer "worktrust/internal/platform/kafka/consumer"
	"worktrust/internal/platform/kafka/producer"
	"worktrust/internal/platform/logger"
	"worktrust/internal/platform/redis"
	"worktrust/internal/proof"
	"worktrust/internal/ratelimit"
	"worktrust/internal/reputation"
	reputationstore "worktrust/internal/reputation/store"
	"worktrust/internal/verification"
	verificationmetrics "worktrust/internal/verification/metrics"
	verificationstore "worktrust/internal/verification/store"
	"worktrust/migrations"
	id "worktrust/pkg/domain"
	"worktrust/pkg/platform/audit"
	auditconsumer "worktrust/pkg/platform/audit/consumer"
	"worktrust/pkg/platform/audit/publisher"
	kafkastore "worktrust/pkg/platform/audit/store/kafka"
	auditmemory "worktrust/pkg/platform/audit/store/memory"
	auditpostgres "worktrust/pkg/platform/audit/store/postgres"
	txcontext "worktrust/pkg/platform/tx"
)

const auditBufferSize = 1024

// loadConfig reads an optional .env file before the environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return config.FromEnv()
}

// app holds every long-lived dependency of the process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	db       *sql.DB
	redis    *redis.Client
	producer *producer.Producer

	audit         *publisher.Publisher
	auditReader   audit.Store
	auditConsumer *kafkaconsumer.Consumer

	signer       proof.Signer
	proofs       *proof.Service
	verification *verification.Service
	fraud        *fraud.Service
	reputation   *reputation.Service
	credentials  *credential.Service

	rateLimits ratelimit.Store

	records  verification.RecordStore
	reviews  reputation.ReviewStore
	profiles profileStore
}

type profileStore interface {
	FindByUser(ctx context.Context, userID id.UserID) (*credential.Profile, error)
	Save(ctx context.Context, profile *credential.Profile) error
}

func newLogger(cfg *config.Config) *slog.Logger {
	log := logger.New(cfg.Log)
	slog.SetDefault(log)
	return log
}

// buildApp connects to the configured backends and assembles the services.
// Every backend is optional: without a database URL the stores are in-memory,
// without Redis the revocation list is process-local, and without Kafka
// brokers audit events go straight to the store.
func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log, registry: prometheus.NewRegistry()}

	if err := a.openDatabase(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildAudit(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildServices(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openDatabase(ctx context.Context) error {
	if a.cfg.Database.URL == "" {
		a.logger.Warn("no database configured, using in-memory stores")
		return nil
	}
	db, err := openPostgres(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	a.db = db
	if err := migrations.Apply(ctx, db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// buildAudit picks the audit sink. With Kafka, events are published to the
// audit topic and a consumer group persists them to the durable store.
func (a *app) buildAudit(ctx context.Context) error {
	var durable audit.Store = auditmemory.NewInMemoryStore()
	var pgStore *auditpostgres.Store
	if a.db != nil {
		pgStore = auditpostgres.New(a.db)
		durable = pgStore
	}
	a.auditReader = durable

	sink := durable
	if len(a.cfg.Kafka.Brokers) > 0 {
		if pgStore == nil {
			return errors.New("kafka audit stream requires WORKTRUST_DATABASE_URL")
		}
		p, err := producer.New(a.cfg.Kafka.Brokers, a.logger)
		if err != nil {
			return err
		}
		a.producer = p
		if err := p.EnsureTopic(ctx, a.cfg.Kafka.AuditTopic, a.cfg.Kafka.Partitions, a.cfg.Kafka.Replication); err != nil {
			return err
		}
		sink = kafkastore.New(p, a.cfg.Kafka.AuditTopic)

		c, err := kafkaconsumer.New(kafkaconsumer.Config{
			Brokers: a.cfg.Kafka.Brokers,
			Group:   a.cfg.Kafka.ConsumerGroup,
			Topics:  []string{a.cfg.Kafka.AuditTopic},
		}, auditconsumer.NewDefaultRouter(pgStore, a.logger), a.logger)
		if err != nil {
			return err
		}
		a.auditConsumer = c
	}

	a.audit = publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(a.logger),
	)
	return nil
}

func (a *app) buildServices(ctx context.Context) error {
	signer, err := buildSigner(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.signer = signer
	proofs, err := proof.NewService(signer, a.cfg.Issuer.ID, proof.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.proofs = proofs
	if proofs.ReducedAssurance() {
		a.logger.Warn("issuing with HMAC proofs: reduced assurance, not publicly verifiable")
	}

	var (
		records     verification.RecordStore  = verificationstore.NewInMemoryRecordStore()
		statuses    verification.StatusStore  = verificationstore.NewInMemoryStatusStore()
		reviews     reputation.ReviewStore    = reputationstore.NewInMemoryReviewStore()
		profiles    profileStore              = credentialstore.NewInMemoryProfileStore()
		credentials credential.Store          = credentialstore.NewInMemoryCredentialStore()
		revocations credential.RevocationList = revocation.NewInMemoryList()
	)
	if a.db != nil {
		records = verificationstore.NewPostgresRecordStore(a.db)
		statuses = verificationstore.NewPostgresStatusStore(a.db)
		reviews = reputationstore.NewPostgresReviewStore(a.db)
		profiles = credentialstore.NewPostgresProfileStore(a.db)
		credentials = credentialstore.NewPostgresCredentialStore(a.db)
	}
	client, err := redis.New(a.cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		a.redis = client
		revocations = revocation.NewRedisList(client.Client)
		a.rateLimits = ratelimit.NewRedisStore(client.Client)
	} else {
		a.rateLimits = ratelimit.NewInMemoryStore()
		a.logger.Warn("no redis configured, revocation list is local to this process")
	}
	a.records, a.reviews, a.profiles = records, reviews, profiles

	var txRunner txcontext.Runner = txcontext.NopRunner{}
	if a.db != nil {
		txRunner = txcontext.NewSQLRunner(a.db)
	}

	engine := verification.NewEngine(verification.NewReconfirmerRegistry(), a.cfg.Verification.ReconfirmTimeout)
	a.verification, err = verification.NewService(records, statuses, proofs, engine,
		verification.WithLogger(a.logger),
		verification.WithTxRunner(txRunner),
		verification.WithMetrics(verificationmetrics.New(a.registry)),
		verification.WithAuditPublisher(a.audit),
		verification.WithResultTTL(a.cfg.Verification.ResultTTL),
	)
	if err != nil {
		return err
	}

	a.fraud = fraud.NewService(
		fraud.WithLogger(a.logger),
		fraud.WithMetrics(fraudmetrics.New(a.registry)),
		fraud.WithAuditPublisher(a.audit),
	)

	a.reputation, err = reputation.NewService(reviews, a.fraud,
		reputation.WithLogger(a.logger),
		reputation.WithProjectLookup(a.verification),
	)
	if err != nil {
		return err
	}

	opts := []credential.Option{
		credential.WithLogger(a.logger),
		credential.WithMetrics(credentialmetrics.New(a.registry)),
		credential.WithAuditPublisher(a.audit),
		credential.WithRevocationList(revocations),
		credential.WithSubjectDataSource(credential.NewDataSource(profiles, a.verification, a.fraud, reviews, a.reputation)),
		credential.WithIssuerProfile(a.cfg.Issuer.Name, a.cfg.Issuer.URL),
		credential.WithDefaultTTLDays(a.cfg.Issuer.TTLDays),
	}
	if a.cfg.Issuer.StatusListURL != "" {
		opts = append(opts, credential.WithStatusListURL(a.cfg.Issuer.StatusListURL))
	}
	a.credentials, err = credential.NewService(credentials, proofs, a.cfg.Issuer.ID, opts...)
	return err
}

// buildSigner loads key material for the configured mode. A missing key is
// a startup error; the service never silently downgrades to HMAC.
func buildSigner(ctx context.Context, cfg *config.Config) (proof.Signer, error) {
	mode, err := proof.ParseMode(cfg.Signing.Mode)
	if err != nil {
		return nil, err
	}
	var key *rsa.PrivateKey
	if mode == proof.ModeRSA {
		data := []byte(cfg.Signing.PrivateKeyPEM)
		if cfg.Signing.PrivateKeyFile != "" {
			data, err = os.ReadFile(cfg.Signing.PrivateKeyFile)
			if err != nil {
				return nil, fmt.Errorf("read signing key: %w", err)
			}
		}
		key, err = proof.ParsePrivateKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse signing key: %w", err)
		}
	}
	return proof.NewSigner(ctx, proof.SignerConfig{
		Mode:                  mode,
		AllowReducedAssurance: cfg.AllowReducedAssurance(),
	}, proof.NewStaticKeyProvider(key, []byte(cfg.Signing.SharedSecret)))
}

// Close releases backends in reverse order of construction. The audit
// publisher drains its buffer before the producer goes away.
func (a *app) Close() {
	if a.audit != nil {
		_ = a.audit.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}
