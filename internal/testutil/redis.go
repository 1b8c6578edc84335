//go:build integration

package testutil

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisContainer is the docker container holding the test Redis
// (docker run -d --name uoft-test-redis redis:7).
const RedisContainer = "uoft-test-redis"

// RedisAddr returns the address of the test Redis (IP:port).
// It first checks UOFT_TEST_REDIS_ADDR, then discovers the Docker container IP.
func RedisAddr() string {
	if addr := os.Getenv("UOFT_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	out, err := exec.Command("docker", "inspect",
		"--format", "{{range .NetworkSettings.Networks}}{{.IPAddress}}{{end}}",
		RedisContainer).Output()
	if err != nil {
		return ""
	}
	ip := strings.TrimSpace(string(out))
	if ip == "" {
		return ""
	}
	return ip + ":6379"
}

// SkipIfNoRedis skips the test if the test Redis is not reachable and
// returns its address otherwise.
func SkipIfNoRedis(t *testing.T) string {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set UOFT_TEST_REDIS_ADDR or start the uoft-test-redis container")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
	return addr
}

// RedisClient returns a client for the test Redis, closed on cleanup.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := SkipIfNoRedis(t)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

// DeleteKey removes key from the test Redis now and again on cleanup.
func DeleteKey(t *testing.T, key string) {
	t.Helper()
	client := RedisClient(t)
	del := func() {
		if err := client.Del(context.Background(), key).Err(); err != nil {
			t.Errorf("deleting %s: %v", key, err)
		}
	}
	del()
	t.Cleanup(del)
}
