//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestManager_Integration_StoreAndLookup(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	manager := NewManager(redisClient, DefaultConfig())
	ctx := context.Background()

	player := cotd.ResolvedPlayer{Candidate: cotd.Candidate{ID: "5d6b14db-4d41-47a4-93e2-36a3bf229f9b", DisplayName: "Scrapie"}}

	if err := manager.Store(ctx, "Scrapie", player); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, found, err := manager.Lookup(ctx, "Scrapie")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found {
		t.Fatal("Lookup() found = false, want true")
	}
	if got != player {
		t.Errorf("Lookup() = %+v, want %+v", got, player)
	}

	ttl, err := redisClient.TTL(ctx, manager.Key("Scrapie").String()).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("TTL = %v, want about 24h", ttl)
	}
}

func TestManager_Integration_ShortTTLExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.TTL = time.Second
	manager := NewManager(redisClient, cfg)
	ctx := context.Background()

	player := cotd.ResolvedPlayer{Candidate: cotd.Candidate{ID: "abc", DisplayName: "Short"}}
	if err := manager.Store(ctx, "Short", player); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	_, found, err := manager.Lookup(ctx, "Short")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found {
		t.Error("Lookup() found expired entry")
	}
}
