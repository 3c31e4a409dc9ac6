// Package idgen produces human-readable entity codes such as PRB-20261015-0007.
package idgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Generator hands out globally unique codes for a prefix.
type Generator interface {
	Generate(ctx context.Context, prefix string) (string, error)
}

var ErrEmptyPrefix = errors.New("idgen: empty prefix")

func format(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}

func normalize(prefix string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if p == "" {
		return "", ErrEmptyPrefix
	}
	return p, nil
}

// RedisGenerator counts per prefix and day with INCR.
type RedisGenerator struct {
	rdb       *redis.Client
	keyPrefix string
	now       func() time.Time
}

func NewRedisGenerator(rdb *redis.Client, keyPrefix string) *RedisGenerator {
	if keyPrefix == "" {
		keyPrefix = "recytrack:seq"
	}
	return &RedisGenerator{rdb: rdb, keyPrefix: keyPrefix, now: time.Now}
}

func (g *RedisGenerator) Generate(ctx context.Context, prefix string) (string, error) {
	p, err := normalize(prefix)
	if err != nil {
		return "", err
	}
	day := g.now()
	key := fmt.Sprintf("%s:%s:%s", g.keyPrefix, p, day.Format("20060102"))

	pipe := g.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("idgen: redis incr %s: %w", key, err)
	}
	return format(p, day, incr.Val()), nil
}

// IDSequence backs SequenceGenerator.
type IDSequence struct {
	SeqKey    string    `gorm:"primaryKey;size:64"`
	Counter   int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (IDSequence) TableName() string {
	return "id_sequences"
}

// SequenceGenerator keeps counters in the relational store; used when redis is not configured.
type SequenceGenerator struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSequenceGenerator(db *gorm.DB) *SequenceGenerator {
	return &SequenceGenerator{db: db, now: time.Now}
}

func (g *SequenceGenerator) Generate(ctx context.Context, prefix string) (string, error) {
	p, err := normalize(prefix)
	if err != nil {
		return "", err
	}
	day := g.now()
	key := p + ":" + day.Format("20060102")

	var seq IDSequence
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seq_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"counter":    gorm.Expr("id_sequences.counter + 1"),
				"updated_at": day,
			}),
		}).Create(&IDSequence{SeqKey: key, Counter: 1})
		if upsert.Error != nil {
			return upsert.Error
		}
		return tx.Where("seq_key = ?", key).First(&seq).Error
	})
	if err != nil {
		return "", fmt.Errorf("idgen: sequence %s: %w", key, err)
	}
	return format(p, day, seq.Counter), nil
}
