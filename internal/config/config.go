package config

import (
	"io"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string   `yaml:"addr"`
	LogLevel string   `yaml:"log-level"`
	Cache    *Cache   `yaml:"cache"`
	Fetch    *Fetch   `yaml:"fetch"`
	Sources  []Source `yaml:"sources"`
}

type Cache struct {
	// TTL is the cache entry lifetime in seconds. Zero means entries
	// never expire.
	TTL int64 `yaml:"ttl"`

	// EvictEvery is the janitor sweep interval in seconds.
	EvictEvery int64 `yaml:"evict-every"`

	Disk *Disk `yaml:"disk"`
	S3   *S3   `yaml:"s3"`
}

type Disk struct {
	Dir   string `yaml:"dir"`
	Limit string `yaml:"limit"`
}

type S3 struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
}

type Fetch struct {
	// Timeout bounds a single source download, in seconds.
	Timeout int64 `yaml:"timeout"`

	// ComputeTimeout bounds a whole fetch+transform attempt, in seconds.
	ComputeTimeout int64 `yaml:"compute-timeout"`

	// MaxSourceSize is a human-readable size ceiling for source bodies
	// (e.g. "50 MiB").
	MaxSourceSize string `yaml:"max-source-size"`
}

// Source is an allow-list rule for source hosts: an expression over the
// "scheme" and "host" of the requested source URL. When no rules are
// configured, every source is allowed.
type Source struct {
	Expr string `yaml:"expr"`
}

func Parse(r io.Reader) (*Config, error) {
	var config Config

	if err := yaml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
