package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/wandergrowth/leadmux/adapter"
	"github.com/wandergrowth/leadmux/app_config"
	"github.com/wandergrowth/leadmux/hunter"
	"github.com/wandergrowth/leadmux/media"
	"github.com/wandergrowth/leadmux/model"
	"github.com/wandergrowth/leadmux/platform"
	"github.com/wandergrowth/leadmux/publisher"
	"github.com/wandergrowth/leadmux/ranking"
	"github.com/wandergrowth/leadmux/reporter"
	"github.com/wandergrowth/leadmux/scheduler"
	"github.com/wandergrowth/leadmux/server"
	"github.com/wandergrowth/leadmux/store"
	"github.com/wandergrowth/leadmux/utils"
	"github.com/wandergrowth/leadmux/utils/dotenv"
	Flag "github.com/wandergrowth/leadmux/utils/flag"
	. "github.com/wandergrowth/leadmux/utils/log"
)

func cleanup() {
	utils.CloseProfiler()
	utils.CloseTracer()
	Log.Info("engine shutdown")
}

func publishStatuses(cfg app_config.EngineAppConfig) []model.DraftStatus {
	statuses := []model.DraftStatus{}
	for _, status := range cfg.PUBLISH_STATUSES {
		statuses = append(statuses, model.DraftStatus(status))
	}
	return statuses
}

func buildSearchers(cfg app_config.EngineAppConfig) []platform.Searcher {
	searchers := []platform.Searcher{}
	for _, name := range cfg.PLATFORMS {
		switch name {
		case platform.TwitterPlatform:
			searchers = append(searchers, platform.NewTwitterSearcher())
		case platform.RedditPlatform:
			searchers = append(searchers, platform.NewRedditSearcher())
		default:
			Log.Warnln("unknown platform in config:", name)
		}
	}
	return searchers
}

func main() {
	Flag.ParseFlags()
	defer cleanup()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	utils.InitTracer()
	utils.InitProfiler()

	cfg := app_config.ParseEngineAppConfig(*Flag.ConfigPath)

	db, err := utils.GetDBConnection()
	if err != nil {
		Log.Fatal("fail to connect database: ", err)
	}
	utils.DatabaseSetupAndMigration(db)
	draftStore := store.NewGormDraftStore(db)

	// Redis keeps the autopublish toggle and daily counters across restarts.
	// Without it the engine still runs, but autopublish stays off.
	var toggle publisher.StatusToggle = publisher.StaticToggle(false)
	statusStore, err := utils.GetStatusStore()
	if err != nil {
		Log.Warnln("no redis status store, autopublish disabled: ", err)
		statusStore = nil
	} else {
		toggle = statusStore
	}

	var statsdClient *statsd.Client
	if cfg.STATSD_ADDR != "" {
		statsdClient, err = statsd.New(cfg.STATSD_ADDR)
		if err != nil {
			Log.Warnln("fail to create statsd client: ", err)
		}
	}

	eventBus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	engine := ranking.NewEngine(cfg.SCORING, cfg.FILTERS)

	hunterState := scheduler.NewState(cfg.DAILY_HUNT_CAP)
	publisherState := scheduler.NewState(cfg.DAILY_PUBLISH_CAP)
	if statusStore != nil {
		hunterState.AttachStatusStore(statusStore, Flag.HunterService)
		publisherState.AttachStatusStore(statusStore, Flag.PublisherService)
	} else {
		// No redis: rebuild today's counters from the draft store so a
		// restart doesn't double the daily quotas.
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if created, err := draftStore.CountCreatedSince(startOfDay); err == nil {
			hunterState.SeedCount(int(created))
		}
		if published, err := draftStore.CountPublishedSince(startOfDay); err == nil {
			publisherState.SeedCount(int(published))
		}
	}

	leadHunter := hunter.NewHunter(
		buildSearchers(cfg),
		draftStore,
		engine,
		hunter.NewTemplateDrafter(cfg.REPLY_TEMPLATES),
		hunter.Config{
			Keywords:            cfg.KEYWORDS,
			MaxResultsPerSearch: cfg.MAX_RESULTS_PER_SEARCH,
			DailyLimit:          cfg.DAILY_HUNT_CAP,
			CycleInterval:       cfg.HuntInterval(),
			KeywordDelay:        cfg.KeywordDelay(),
			RetentionWindow:     cfg.RetentionWindow(),
			StaleMaxScore:       cfg.STALE_MAX_SCORE,
		},
		hunterState,
		eventBus,
	)

	mediaChain := media.NewChain(
		media.NewHTTPGenerator(cfg.MEDIA_ENDPOINT),
		&media.StaticImageGenerator{Reference: cfg.STATIC_MEDIA_REF},
	)

	publishGate := publisher.NewPublisher(
		draftStore,
		mediaChain,
		adapter.WithQuoteFallback(adapter.NewHTTPAdapter(cfg.PUBLISH_ENDPOINT)),
		toggle,
		publisher.Config{
			DailyLimit:     cfg.DAILY_PUBLISH_CAP,
			MinInterval:    cfg.MinPublishInterval(),
			ScoreThreshold: cfg.PUBLISH_SCORE_THRESHOLD,
			CycleInterval:  cfg.PublishInterval(),
			Statuses:       publishStatuses(cfg),
		},
		publisherState,
		eventBus,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reporter.NewReporter(statsdClient, eventBus, cfg.SLACK_WEBHOOK_URL).Run(ctx); err != nil {
		Log.Fatal("fail to start reporter: ", err)
	}
	go leadHunter.Run(ctx)
	go publishGate.Run(ctx)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	router := server.NewRouter(server.AdminDeps{
		Hunter:         leadHunter,
		StatusStore:    statusStore,
		HunterState:    hunterState,
		PublisherState: publisherState,
	})

	Log.Info("engine starts up")
	router.Run(":8080")
}
