package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openraise/escrow-backend/internal/logger"
)

const defaultWorklistKey = "automation:worklist"

// Worklist keeps the automation checklist in a redis set so several
// instances share one view of which projects still need checking.
type Worklist struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

func NewWorklist(log *logger.Logger) (*Worklist, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REDIS_WORKLIST_KEY"))
	if key == "" {
		key = defaultWorklistKey
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Worklist{
		log: log.With("service", "RedisWorklist"),
		rdb: rdb,
		key: key,
	}, nil
}

func (wl *Worklist) Add(ctx context.Context, projectID int64) error {
	if err := wl.rdb.SAdd(ctx, wl.key, strconv.FormatInt(projectID, 10)).Err(); err != nil {
		return fmt.Errorf("sadd %d: %w", projectID, err)
	}
	return nil
}

func (wl *Worklist) Remove(ctx context.Context, projectID int64) error {
	if err := wl.rdb.SRem(ctx, wl.key, strconv.FormatInt(projectID, 10)).Err(); err != nil {
		return fmt.Errorf("srem %d: %w", projectID, err)
	}
	return nil
}

func (wl *Worklist) Snapshot(ctx context.Context) ([]int64, error) {
	members, err := wl.rdb.SMembers(ctx, wl.key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			wl.log.Warn("Skipping malformed worklist member", "member", member)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (wl *Worklist) Close() error { return wl.rdb.Close() }
