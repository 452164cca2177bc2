package config

// Redis backs the optional cross-session media cache.  The cache is a pure
// performance layer: when the server at startup cannot reach Redis it runs
// without it and every media lookup falls through to MySQL.

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from the environment and verifies the
// connection.  Recognized variables:
//
//	REDIS_ADDR     host:port (preferred)
//	REDIS_HOST     with REDIS_PORT, overrides REDIS_ADDR when both are set
//	REDIS_PASSWORD optional password
//	REDIS_DB       database number, default 0
//	REDIS_TLS      "true" or "1" enables TLS
//
// Returns nil when the server is unreachable; callers treat nil as
// cache-disabled.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	dbNum := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			dbNum = n
		}
	}

	var tlsConf *tls.Config
	if raw := os.Getenv("REDIS_TLS"); strings.EqualFold(raw, "true") || raw == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis: %s unreachable, media cache disabled: %v", addr, err)
		client.Close()
		return nil
	}
	return client
}
