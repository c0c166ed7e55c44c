// Package config centralizes space-captain's compile-time constants and
// the handful of SC_* environment overrides and certificate-path
// fallback rule the runtime needs. It is a thin spf13/viper overlay
// rather than a full component-registry config system: a two-binary
// prototype has one config surface, not a pluggable set of components
// to assemble.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Defaults mirror the runtime's compile-time constants.
const (
	DefaultTCPAddr     = ":7070"
	DefaultUDPAddr     = ":7443"
	DefaultQueueDepth  = 1024
	DefaultPoolSize    = 4096
	DefaultWorkerCount = 8
	DefaultAddTimeout  = 2 * time.Second
	DefaultPopTimeout  = 2 * time.Second
)

// candidateCertPaths is the fallback search order for locating the
// server certificate/key when SC_SERVER_CRT / SC_SERVER_KEY are unset.
var candidateCertPaths = []struct{ crt, key string }{
	{"/etc/space-captain/server.crt", "/etc/space-captain/server.key"},
	{".secrets/certs/server.crt", ".secrets/certs/server.key"},
}

// Config is the resolved set of runtime settings for either binary.
type Config struct {
	TCPAddr     string
	UDPAddr     string
	QueueDepth  int
	PoolSize    int
	WorkerCount int
	AddTimeout  time.Duration
	PopTimeout  time.Duration

	ServerCert string
	ServerKey  string
	PinnedHash string // hex-encoded SHA-256, client-side only
}

// Load builds a Config from compile-time defaults overlaid with SC_*
// environment variables via viper, and resolves the server certificate
// path fallback chain.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SC")
	v.AutomaticEnv()

	v.SetDefault("tcp_addr", DefaultTCPAddr)
	v.SetDefault("udp_addr", DefaultUDPAddr)
	v.SetDefault("queue_depth", DefaultQueueDepth)
	v.SetDefault("pool_size", DefaultPoolSize)
	v.SetDefault("worker_count", DefaultWorkerCount)

	cfg := &Config{
		TCPAddr:     v.GetString("tcp_addr"),
		UDPAddr:     v.GetString("udp_addr"),
		QueueDepth:  v.GetInt("queue_depth"),
		PoolSize:    v.GetInt("pool_size"),
		WorkerCount: v.GetInt("worker_count"),
		AddTimeout:  DefaultAddTimeout,
		PopTimeout:  DefaultPopTimeout,
		ServerCert:  v.GetString("server_crt"),
		ServerKey:   v.GetString("server_key"),
		PinnedHash:  v.GetString("pinned_hash"),
	}

	if cfg.ServerCert == "" || cfg.ServerKey == "" {
		crt, key := resolveCertFallback()
		if cfg.ServerCert == "" {
			cfg.ServerCert = crt
		}
		if cfg.ServerKey == "" {
			cfg.ServerKey = key
		}
	}

	return cfg, nil
}

// resolveCertFallback walks candidateCertPaths in order, returning the
// first pair where both files exist; the last candidate is returned
// regardless (the caller surfaces the eventual load error) if none do.
func resolveCertFallback() (crt, key string) {
	for _, c := range candidateCertPaths {
		if fileExists(c.crt) && fileExists(c.key) {
			return c.crt, c.key
		}
	}
	last := candidateCertPaths[len(candidateCertPaths)-1]
	return last.crt, last.key
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
