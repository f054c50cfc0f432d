package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"trade-decision-engine/config"
	"trade-decision-engine/internal/api"
	"trade-decision-engine/internal/audit"
	"trade-decision-engine/internal/auth"
	"trade-decision-engine/internal/database"
	"trade-decision-engine/internal/decision"
	"trade-decision-engine/internal/drift"
	"trade-decision-engine/internal/events"
	"trade-decision-engine/internal/forecast"
	"trade-decision-engine/internal/logging"
	"trade-decision-engine/internal/news"
	"trade-decision-engine/internal/notification"
	"trade-decision-engine/internal/risk"
	"trade-decision-engine/internal/scheduler"
	"trade-decision-engine/internal/timeframe"
	"trade-decision-engine/internal/vault"
)

func main() {
	if len(os.Args) > 1 {
		runCommand(os.Args[1:])
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Pretty: cfg.LoggingConfig.Pretty,
	})
	logger.Info().Str("symbol", cfg.Symbol).Msg("decision engine starting")

	ctx := context.Background()

	// Vault is an optional secret source; every lookup falls back to
	// the config value when it is disabled or the key is absent.
	vaultClient, err := vault.NewClient(vault.Config{
		Enabled:    cfg.VaultConfig.Enabled,
		Address:    cfg.VaultConfig.Address,
		Token:      cfg.VaultConfig.Token,
		TLSEnabled: cfg.VaultConfig.TLSEnabled,
		CACert:     cfg.VaultConfig.CACert,
	})
	if err != nil {
		log.Fatalf("Failed to create vault client: %v", err)
	}
	secretPath := cfg.VaultConfig.SecretPath
	dbPassword := vaultClient.Field(ctx, secretPath, "db_password", cfg.DatabaseConfig.Password)
	redisPassword := vaultClient.Field(ctx, secretPath, "redis_password", cfg.RedisConfig.Password)
	jwtSecret := vaultClient.Field(ctx, secretPath, "jwt_secret", cfg.AuthConfig.JWTSecret)
	operatorHash := vaultClient.Field(ctx, secretPath, "operator_password_hash", cfg.AuthConfig.OperatorPasswordHash)
	telegramToken := vaultClient.Field(ctx, secretPath, "telegram_bot_token", cfg.NotificationConfig.Telegram.BotToken)

	// Initialize event bus
	bus := events.NewEventBus()

	// News state: classifier and blocker over a shared store, with an
	// optional Redis snapshot so blocks survive restarts.
	newsStore := news.NewStore()
	classifier := news.NewClassifier(news.ClassifierConfig{
		MaxCacheAge:     time.Duration(cfg.NewsConfig.MaxCacheAgeMinutes) * time.Minute,
		RelevanceWindow: time.Duration(cfg.NewsConfig.RelevanceWindowMinutes) * time.Minute,
	}, newsStore)
	blocker := news.NewBlocker(news.BlockerConfig{
		MaxVolatilityRatio: cfg.NewsConfig.MaxVolatilityRatio,
	}, classifier, newsStore, logger)

	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: redisPassword,
			DB:       cfg.RedisConfig.DB,
		})
	}
	persist := news.NewRedisPersistence(redisClient, newsStore, logger)
	if restored, err := persist.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("news state restore failed, starting clean")
	} else if restored {
		logger.Info().Int("active_blocks", len(newsStore.Blocks())).Msg("news state restored")
	}

	// Sizing engine
	riskCfg := risk.DefaultConfig()
	riskCfg.BaseRiskPct = cfg.RiskConfig.BaseRiskPct
	riskCfg.MaxRiskPct = cfg.RiskConfig.MaxRiskPct
	riskCfg.MinStopDistance = cfg.RiskConfig.MinStopDistance
	riskCfg.ContractSize = cfg.RiskConfig.ContractSize
	riskCfg.MinLot = cfg.RiskConfig.MinLot
	riskCfg.MaxLot = cfg.RiskConfig.MaxLot
	riskCfg.LotStep = cfg.RiskConfig.LotStep
	sizer := risk.NewEngine(riskCfg)

	// Model-serving providers: forecasts, regimes, and market snapshots
	// come from the same endpoint.
	providerTimeout := time.Duration(cfg.ProviderConfig.TimeoutSeconds) * time.Second
	providers := forecast.NewClient(cfg.ProviderConfig.ModelBaseURL, providerTimeout)

	// Decision engine
	engine := decision.NewEngine(decision.Config{
		MinConfidence:     timeframeMap(cfg.DecisionConfig.MinConfidence),
		MinATR:            timeframeMap(cfg.DecisionConfig.MinATR),
		MinRR:             cfg.DecisionConfig.MinRR,
		MinRiskMultiplier: cfg.DecisionConfig.MinRiskMultiplier,
		EvalTimeout:       time.Duration(cfg.DecisionConfig.EvalTimeoutSeconds) * time.Second,
	}, drift.Thresholds{
		SafeMax:    cfg.DriftConfig.SafeMaxPct,
		WarningMax: cfg.DriftConfig.WarningMaxPct,
	}, providers, providers, providers, blocker, sizer, logger)

	// Audit trail: always the local JSONL file, plus postgres when
	// enabled.
	jsonlRecorder, err := audit.NewJSONLRecorder(cfg.AuditConfig.FilePath, logger)
	if err != nil {
		log.Fatalf("Failed to open audit file: %v", err)
	}
	defer jsonlRecorder.Close()
	sinks := []audit.Recorder{jsonlRecorder}

	var repo *database.VerdictRepository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: dbPassword,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		repo = database.NewVerdictRepository(db)
		sinks = append(sinks, repo)
	}
	recorder := audit.NewMultiRecorder(logger, sinks...)

	// Scheduler
	fetcher := news.NewHTTPFetcher(cfg.ProviderConfig.NewsFeedURL, providerTimeout)
	sched := scheduler.New(scheduler.Config{
		Interval:   time.Duration(cfg.SchedulerConfig.IntervalSeconds) * time.Second,
		Workers:    cfg.SchedulerConfig.Workers,
		Timeframes: timeframes(cfg.SchedulerConfig.Timeframes),
	}, engine, blocker, fetcher, recorder, bus, persist, logger)
	if repo != nil {
		sched.SetBlockLog(repo.LogNewsBlock)
	}

	// Notifications ride on the event bus.
	if cfg.NotificationConfig.Enabled {
		notifyManager := notification.NewManager()
		if cfg.NotificationConfig.Telegram.Enabled {
			notifyManager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: telegramToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  cfg.NotificationConfig.Telegram.Enabled,
			}))
			logger.Info().Msg("telegram notifications enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifyManager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    cfg.NotificationConfig.Discord.Enabled,
			}))
			logger.Info().Msg("discord notifications enabled")
		}
		subscribeNotifications(bus, notifyManager)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go sched.Run(runCtx)

	// API server
	var server *api.Server
	if cfg.ServerConfig.Enabled {
		authService := auth.NewService(jwtSecret, cfg.AuthConfig.Operator, operatorHash, cfg.AuthConfig.TokenDuration)
		server = api.NewServer(api.ServerConfig{
			Host:           cfg.ServerConfig.Host,
			Port:           cfg.ServerConfig.Port,
			ProductionMode: cfg.ServerConfig.ProductionMode,
			AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		}, authService, sched, repo, newsStore, bus, logger)

		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("api server stopped")
			}
		}()
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	cancelRun()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api server shutdown failed")
		}
	}
	if err := persist.Save(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("final news state save failed")
	}

	logger.Info().Msg("decision engine stopped")
}

// runCommand handles the operational subcommands.
func runCommand(args []string) {
	switch args[0] {
	case "generate-config":
		filename := "config.json"
		if len(args) > 1 {
			filename = args[1]
		}
		if err := config.GenerateSampleConfig(filename); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Sample configuration written to %s\n", filename)

	case "hash-password":
		if len(args) < 2 {
			log.Fatal("Usage: trade-decision-engine hash-password <password>")
		}
		hash, err := auth.HashPassword(args[1])
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(hash)

	default:
		log.Fatalf("Unknown command %q (available: generate-config, hash-password)", args[0])
	}
}

// subscribeNotifications fans selected engine events out to the
// configured notifiers.
func subscribeNotifications(bus *events.EventBus, m *notification.Manager) {
	bus.Subscribe(events.EventTradeAdmitted, func(e events.Event) {
		m.SendTradeAdmitted(
			asString(e.Data, "timeframe"),
			asString(e.Data, "direction"),
			asFloat(e.Data, "entry"),
			asFloat(e.Data, "stop"),
			asFloat(e.Data, "target"),
			asFloat(e.Data, "lots"),
			asFloat(e.Data, "risk_multiplier"),
		)
	})
	bus.Subscribe(events.EventTradeRejected, func(e events.Event) {
		m.SendTradeRejected(asString(e.Data, "timeframe"), asString(e.Data, "reason_code"))
	})
	bus.Subscribe(events.EventNewsBlockCreated, func(e events.Event) {
		until, _ := e.Data["block_until"].(time.Time)
		m.SendNewsBlock(asString(e.Data, "event_type"), asString(e.Data, "headline"), until)
	})
	bus.Subscribe(events.EventNewsBlockExpired, func(e events.Event) {
		m.SendBlockExpired(asString(e.Data, "event_type"))
	})
	bus.Subscribe(events.EventDriftWarning, func(e events.Event) {
		m.SendDriftWarning(asString(e.Data, "timeframe"), asFloat(e.Data, "drift_pct"), asString(e.Data, "level"))
	})
	bus.Subscribe(events.EventError, func(e events.Event) {
		m.SendError(asString(e.Data, "source"), asString(e.Data, "message"))
	})
}

func timeframeMap(in map[string]float64) map[timeframe.Timeframe]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[timeframe.Timeframe]float64, len(in))
	for k, v := range in {
		out[timeframe.Timeframe(k)] = v
	}
	return out
}

func timeframes(in []string) []timeframe.Timeframe {
	out := make([]timeframe.Timeframe, 0, len(in))
	for _, s := range in {
		out = append(out, timeframe.Timeframe(s))
	}
	return out
}

func asString(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func asFloat(data map[string]interface{}, key string) float64 {
	f, _ := data[key].(float64)
	return f
}
