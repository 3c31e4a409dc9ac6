package idgen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSequenceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:idgen_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&IDSequence{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSequenceGeneratorIncrementsPerPrefix(t *testing.T) {
	db := openSequenceDB(t)
	gen := NewSequenceGenerator(db)
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return fixed }
	ctx := context.Background()

	first, err := gen.Generate(ctx, "out")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first != "OUT-20261015-0001" {
		t.Fatalf("expected OUT-20261015-0001, got %s", first)
	}
	second, _ := gen.Generate(ctx, "OUT")
	if second != "OUT-20261015-0002" {
		t.Fatalf("expected OUT-20261015-0002, got %s", second)
	}
	other, _ := gen.Generate(ctx, "PRB")
	if other != "PRB-20261015-0001" {
		t.Fatalf("expected independent PRB counter, got %s", other)
	}
}

func TestSequenceGeneratorRejectsEmptyPrefix(t *testing.T) {
	gen := NewSequenceGenerator(openSequenceDB(t))
	if _, err := gen.Generate(context.Background(), "  "); err != ErrEmptyPrefix {
		t.Fatalf("expected ErrEmptyPrefix, got %v", err)
	}
}

func TestSequenceGeneratorUnique(t *testing.T) {
	gen := NewSequenceGenerator(openSequenceDB(t))
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := gen.Generate(context.Background(), "LS")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code %s", code)
		}
		seen[code] = true
	}
}

// TestRedisGenerator runs only against a live redis (REDIS_ADDR).
func TestRedisGenerator(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	gen := NewRedisGenerator(rdb, fmt.Sprintf("recytrack:test:%d", time.Now().UnixNano()))
	a, err := gen.Generate(context.Background(), "VRB")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := gen.Generate(context.Background(), "VRB")
	if a == b || !strings.HasPrefix(a, "VRB-") {
		t.Fatalf("unexpected codes %s %s", a, b)
	}
}
