package config_test

import (
	"strings"
	"testing"

	"github.com/fgribreau/img-optimizer/internal/config"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	document := `addr: ":9090"
log-level: debug
cache:
  ttl: 86400
  evict-every: 60
  disk:
    dir: /var/cache/img-optimizer
    limit: 10 GB
fetch:
  timeout: 30
  compute-timeout: 60
  max-source-size: 50 MiB
sources:
  - expr: host endsWith ".example.com"
  - expr: host == "cdn.test"
`

	parsed, err := config.Parse(strings.NewReader(document))
	require.NoError(t, err)

	require.Equal(t, ":9090", parsed.Addr)
	require.Equal(t, "debug", parsed.LogLevel)

	require.NotNil(t, parsed.Cache)
	require.EqualValues(t, 86400, parsed.Cache.TTL)
	require.EqualValues(t, 60, parsed.Cache.EvictEvery)
	require.NotNil(t, parsed.Cache.Disk)
	require.Equal(t, "/var/cache/img-optimizer", parsed.Cache.Disk.Dir)
	require.Equal(t, "10 GB", parsed.Cache.Disk.Limit)
	require.Nil(t, parsed.Cache.S3)

	require.NotNil(t, parsed.Fetch)
	require.EqualValues(t, 30, parsed.Fetch.Timeout)
	require.EqualValues(t, 60, parsed.Fetch.ComputeTimeout)
	require.Equal(t, "50 MiB", parsed.Fetch.MaxSourceSize)

	require.Len(t, parsed.Sources, 2)
	require.Equal(t, `host endsWith ".example.com"`, parsed.Sources[0].Expr)
}

func TestParseS3(t *testing.T) {
	document := `cache:
  s3:
    endpoint: http://localhost:4566
    region: us-east-1
    bucket: img-optimizer
    access-key-id: test
    access-key-secret: test
`

	parsed, err := config.Parse(strings.NewReader(document))
	require.NoError(t, err)

	require.NotNil(t, parsed.Cache)
	require.NotNil(t, parsed.Cache.S3)
	require.Equal(t, "http://localhost:4566", parsed.Cache.S3.Endpoint)
	require.Equal(t, "img-optimizer", parsed.Cache.S3.Bucket)
}

func TestParseEmptyDocumentFails(t *testing.T) {
	_, err := config.Parse(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseMalformedDocumentFails(t *testing.T) {
	_, err := config.Parse(strings.NewReader("addr: [\n"))
	require.Error(t, err)
}
