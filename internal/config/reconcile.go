package config

import (
	"os"
	"strconv"
	"time"
)

// ReconcileConfig tunes the reconciliation engine and the background worker.
type ReconcileConfig struct {
	Fanout            int           // concurrent item transforms per content kind
	CheckpointRetries int           // retries per failed checkpoint transaction
	WorkerSchedule    string        // cron expression for the job sweep
	NotifySchedule    string        // cron expression for the notification sweep
	ItemTimeout       time.Duration // upper bound for one identity reconciliation
}

// LoadReconcileConfig reads environment variables to build a
// ReconcileConfig, clamping values into sane ranges.
func LoadReconcileConfig() ReconcileConfig {
	c := ReconcileConfig{
		Fanout:            envInt("RECONCILE_FANOUT", 8),
		CheckpointRetries: envInt("RECONCILE_CHECKPOINT_RETRIES", 2),
		WorkerSchedule:    envStr("WORKER_SCHEDULE", "@every 15m"),
		NotifySchedule:    envStr("NOTIFY_SCHEDULE", "@every 1m"),
		ItemTimeout:       envDur("RECONCILE_TIMEOUT", 10*time.Minute),
	}
	if c.Fanout < 1 {
		c.Fanout = 1
	}
	if c.CheckpointRetries < 0 {
		c.CheckpointRetries = 0
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = 10 * time.Minute
	}
	return c
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
