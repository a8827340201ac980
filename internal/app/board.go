package app

import (
	"github.com/adanyl0v/go-taskboard/internal/cache"
	"github.com/adanyl0v/go-taskboard/internal/config"
	"github.com/adanyl0v/go-taskboard/internal/feed"
	"github.com/adanyl0v/go-taskboard/internal/remote"
	"github.com/adanyl0v/go-taskboard/internal/services"
)

var (
	globalBoard    services.BoardService
	globalListener *feed.Listener
)

// MustInitBoard builds the board service on top of the local cache and
// the remote adapter, and prepares the change feed listener. The
// listener stays unsubscribed until an identity logs in.
func MustInitBoard() {
	cfg := config.Global().Board

	adapter := remote.NewPostgresAdapter(globalLogger, globalPostgresPool)
	cacheStore := cache.NewFileStore(globalLogger, cfg.CachePath)
	globalBoard = services.NewBoardService(globalLogger, adapter, cacheStore)

	source := feed.NewPostgresSource(globalLogger, postgresConnString(), cfg.FeedChannel)
	globalListener = feed.NewListener(
		globalLogger,
		source,
		globalBoard,
		feed.LogNotifier{Logger: globalLogger},
	)

	globalLogger.Info().
		Str("cache_path", cfg.CachePath).
		Str("feed_channel", cfg.FeedChannel).
		Msg("initialized board")
}

// ShutdownBoard tears the change feed subscription down. It runs on
// every exit path so a live subscription is never leaked.
func ShutdownBoard() {
	globalListener.Stop()
	globalLogger.Info().Msg("shut down board")
}
