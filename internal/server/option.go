package server

import (
	"time"

	cachepkg "github.com/fgribreau/img-optimizer/internal/cache"
	optimizerpkg "github.com/fgribreau/img-optimizer/internal/optimizer"
	"github.com/fgribreau/img-optimizer/internal/server/rule"
	"go.uber.org/zap"
)

type Option func(server *Server)

func WithCache(cache cachepkg.Cache) Option {
	return func(server *Server) {
		server.cache = cache
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(server *Server) {
		server.logger = logger
	}
}

func WithRules(rules rule.Rules) Option {
	return func(server *Server) {
		server.rules = rules
	}
}

func WithFetcher(fetcher optimizerpkg.Fetcher) Option {
	return func(server *Server) {
		server.fetcher = fetcher
	}
}

func WithCodec(codec optimizerpkg.Codec) Option {
	return func(server *Server) {
		server.codec = codec
	}
}

func WithMaxSourceSize(maxSourceSize int64) Option {
	return func(server *Server) {
		server.maxSourceSize = maxSourceSize
	}
}

func WithFetchTimeout(fetchTimeout time.Duration) Option {
	return func(server *Server) {
		server.fetchTimeout = fetchTimeout
	}
}

func WithComputeTimeout(computeTimeout time.Duration) Option {
	return func(server *Server) {
		server.computeTimeout = computeTimeout
	}
}
