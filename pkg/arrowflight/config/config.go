// Package config loads deployment tunables from the process environment,
// per spec.md §6's env var table. The teacher's own cockroach settings
// layer is server-side SQL state and not externally importable, so this
// follows the simpler os.Getenv-plus-defaults convention used across the
// retrieval pack's standalone services instead (see DESIGN.md).
package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// Config is the full set of environment-controlled tunables for one
// server process.
type Config struct {
	ListenAddr        string
	MaxMemStream      int64
	ArrowBatchSize    int
	BoltFetchSize     int
	MaxPartitions     int
	FlushDrainTimeout time.Duration
	Neo4jURI          string
	Neo4jUser         string
	Neo4jPassword     string
	Neo4jDatabase     string
}

const (
	defaultListenHost        = ""
	defaultListenPort        = "32010"
	defaultMaxMemStream      = int64(1<<31 - 1)
	defaultArrowBatchSize    = 25000
	defaultBoltFetchSize     = 1000
	defaultMaxPartitions     = 4
	defaultFlushDrainTimeout = 5 * time.Minute
)

// Load reads every tunable from its env var, falling back to the
// documented default when unset. Negative numeric values are coerced to
// their absolute value rather than rejected, matching the original
// implementation's tolerant parsing (see SPEC_FULL.md's environment
// configuration section).
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        net.JoinHostPort(getString("ARROW_FLIGHT_HOST", defaultListenHost), getString("ARROW_FLIGHT_PORT", defaultListenPort)),
		MaxMemStream:      defaultMaxMemStream,
		ArrowBatchSize:    defaultArrowBatchSize,
		BoltFetchSize:     defaultBoltFetchSize,
		MaxPartitions:     defaultMaxPartitions,
		FlushDrainTimeout: defaultFlushDrainTimeout,
		Neo4jURI:          getString("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getString("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword:     getString("NEO4J_PASSWORD", ""),
		Neo4jDatabase:     getString("NEO4J_DATABASE", "neo4j"),
	}

	var err error
	if cfg.MaxMemStream, err = getAbsInt64("MAX_MEM_STREAM", defaultMaxMemStream); err != nil {
		return Config{}, err
	}
	if cfg.ArrowBatchSize, err = getAbsInt("ARROW_BATCH_SIZE", defaultArrowBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.BoltFetchSize, err = getAbsInt("BOLT_FETCH_SIZE", defaultBoltFetchSize); err != nil {
		return Config{}, err
	}
	if cfg.MaxPartitions, err = getAbsInt("ARROW_MAX_PARTITIONS", defaultMaxPartitions); err != nil {
		return Config{}, err
	}
	if v, ok := os.LookupEnv("FLUSH_DRAIN_TIMEOUT_SECONDS"); ok {
		secs, perr := strconv.Atoi(v)
		if perr != nil {
			return Config{}, errors.Wrapf(perr, "config: FLUSH_DRAIN_TIMEOUT_SECONDS=%q", v)
		}
		if secs < 0 {
			secs = -secs
		}
		cfg.FlushDrainTimeout = time.Duration(secs) * time.Second
	}
	return cfg, nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getAbsInt64(key string, def int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s=%q", key, v)
	}
	if n < 0 {
		n = -n
	}
	return n, nil
}

func getAbsInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s=%q", key, v)
	}
	if n < 0 {
		n = -n
	}
	return n, nil
}
