package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/memory"
	pgloader "timed-quiz-service/internal/infra/postgres"
	rediscache "timed-quiz-service/internal/infra/redis"
	"timed-quiz-service/internal/infra/static"
)

// backends holds the optional external connections shared by commands.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func connectBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.pool = pool
	}
	return b, nil
}

func (b *backends) close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// questionSource picks Postgres when configured, then the static document,
// and fronts either with the Redis cache when Redis is available.
func (b *backends) questionSource(cfg config.Config, log logrus.FieldLogger) app.QuestionSource {
	var source app.QuestionSource
	switch {
	case b.pool != nil:
		source = pgloader.NewQuestionLoader(b.pool)
		log.Info("questions from postgres")
	case cfg.Quiz.Source != "":
		source = static.NewSource(cfg.Quiz.Source, nil)
		log.WithField("source", cfg.Quiz.Source).Info("questions from document")
	default:
		source = memory.NewFailingQuestionSource(errNoSource)
		log.Warn("no question source configured")
	}
	if b.redis != nil {
		source = rediscache.NewQuestionCache(b.redis, source, config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute))
	}
	return source
}

func (b *backends) sessionRepository(cfg config.Config) app.SessionRepository {
	if b.redis != nil {
		return rediscache.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewSessionStore()
}
