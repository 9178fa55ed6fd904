package source

import (
	"github.com/rs/zerolog"

	"github.com/ppiankov/vocabmine/internal/cache"
	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/util"
	"github.com/ppiankov/vocabmine/internal/worker"
)

// NewFetcherFromConfig builds the shared HTTP fetcher and its per-host
// limiter from the application configuration
func NewFetcherFromConfig(cfg *model.Config, logger zerolog.Logger) (*HTTPFetcher, *worker.Limiter) {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	opts := []HTTPOption{
		WithLimiter(limiter),
		WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, WithCache(cache.New(cfg.Cache), cfg.Cache.TTL))
	}

	fetcher := NewHTTPFetcher(cfg.HTTP, opts...)
	if cfg.Sources.RespectRobots {
		fetcher.robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, fetcher.Client())
	}
	return fetcher, limiter
}

// NewDefaultRouter registers every built-in adapter. Detection order is
// the registration order below.
func NewDefaultRouter(cfg *model.Config, fetcher *HTTPFetcher) *Router {
	router := NewRouter()
	router.Register(model.SourceWikipedia, NewWikipediaAdapter(fetcher, cfg.Sources.WikipediaLang))
	router.Register(model.SourceWiktionary, NewWiktionaryAdapter(fetcher, cfg.Sources.WikipediaLang))
	router.Register(model.SourceYouTube, NewYouTubeAdapter(fetcher, cfg.Sources.YouTubeAPIKey))
	router.Register(model.SourceRSS, NewRSSAdapter(fetcher, cfg.Sources.RSSItemLimit))
	router.Register(model.SourceAPI, NewAPIAdapter(fetcher, APIConfig{}))
	router.Register(model.SourceFile, NewFileAdapter())
	router.Register(model.SourceHTML, NewHTMLAdapter(fetcher))
	return router
}
