package bootstrap

import (
	"strings"
	"time"

	"mailroom_server/adapter/out/mailbox"
	"mailroom_server/adapter/out/persistence"
	"mailroom_server/adapter/out/smtp"
	"mailroom_server/config"
	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/core/service/classify"
	"mailroom_server/core/service/extract"
	"mailroom_server/core/service/match"
	"mailroom_server/core/service/notify"
	"mailroom_server/core/service/parse"
	"mailroom_server/core/service/route"
	"mailroom_server/infra/database"
	"mailroom_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config  *config.Config
	Routing *config.RoutingConfig
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client

	// Repositories
	ContractRepo     out.ContractRepository
	NotificationRepo out.NotificationRepository
	RouteRepo        out.RouteRepository
	ProcessedCache   out.ProcessedCache

	// Mail adapters
	MailSource    out.MailSource
	MailTransport out.MailTransport

	// Pipeline services
	Extractor  *extract.Service
	Parser     *parse.Parser
	Classifier *classify.Classifier
	Matcher    *match.Matcher
	Router     *route.Router
	Notifier   *notify.Service
	Feed       *notify.FeedChannel
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Routing topology (YAML with built-in defaults)
	routing, err := config.LoadRouting(cfg.RoutingConfigPath)
	if err != nil {
		return nil, nil, err
	}
	deps.Routing = routing
	if cfg.RoutingConfigPath != "" {
		logger.Info("Routing topology loaded from %s (%d departments)", cfg.RoutingConfigPath, len(routing.Departments))
	}

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the row-struct adapters)
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Redis (optional: dedupe falls back to the audit table without it)
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis connection failed, dedupe cache and retry counters disabled: %v", err)
	} else {
		deps.Redis = redisClient
		cleanups = append(cleanups, func() { redisClient.Close() })
		deps.ProcessedCache = persistence.NewRedisProcessedCache(redisClient)
	}

	// Repositories
	deps.ContractRepo = persistence.NewContractAdapter(sqlDB)
	deps.NotificationRepo = persistence.NewNotificationAdapter(sqlDB)
	deps.RouteRepo = persistence.NewRouteAdapter(sqlDB)

	// Mail adapters
	deps.MailSource = mailbox.NewIMAPAdapter(mailbox.Config{
		Host:       cfg.IMAPHost,
		Port:       cfg.IMAPPort,
		Username:   cfg.IMAPUsername,
		Password:   cfg.IMAPPassword,
		Folder:     cfg.IMAPFolder,
		BatchLimit: cfg.IMAPBatchLimit,
		StartTLS:   cfg.IMAPStartTLS,
	})
	deps.MailTransport = smtp.NewAdapter(smtp.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})

	// Pipeline services
	deps.Extractor = extract.NewService(cfg.MaxAttachmentMB)
	deps.Parser = parse.NewParser(parse.Options{
		Keywords:        routing.Keywords,
		UrgencyKeywords: routing.UrgencyKeywords,
	})
	deps.Classifier = classify.NewClassifier(cfg.ModelDir)
	deps.Matcher = match.NewMatcher(deps.ContractRepo)

	departments := make(map[domain.Department]string, len(routing.Departments))
	for dept, mb := range routing.Departments {
		departments[domain.Department(dept)] = mb
	}
	router, err := route.NewRouter(route.Config{
		Departments:      departments,
		CCTriage:         routing.CCTriage,
		AutoReplyEnabled: routing.AutoReply.Enabled,
		AutoReplySubject: routing.AutoReply.Subject,
		FromAddress:      cfg.SMTPFrom,
		ProcessedTTL:     cfg.ProcessedTTL,
	}, deps.MailTransport, deps.RouteRepo, deps.ProcessedCache)
	if err != nil {
		runCleanups(cleanups)
		return nil, nil, err
	}
	deps.Router = router

	// Notification channels: mail fan-out, in-memory feed, structured log
	deps.Feed = notify.NewFeedChannel(200)
	channels := []notify.Channel{
		notify.NewLogChannel(),
		deps.Feed,
	}
	if len(routing.Notifications.Recipients) > 0 || len(routing.Notifications.AdminEmails) > 0 {
		channels = append(channels, notify.NewMailChannel(
			deps.MailTransport,
			cfg.SMTPFrom,
			routing.RecipientList(),
			routing.Notifications.AdminEmails,
		))
	}
	deps.Notifier = notify.NewService(
		deps.NotificationRepo,
		routing.EnabledLevels(),
		routing.Notifications.MaxHistory,
		channels...,
	)

	cleanup := func() { runCleanups(cleanups) }
	return deps, cleanup, nil
}

func runCleanups(cleanups []func()) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
