// Package app wires the stores, services and transport of the
// accreditation service together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"accreditation/internal/cache"
	"accreditation/internal/catalog"
	"accreditation/internal/config"
	"accreditation/internal/model"
	"accreditation/internal/repository"
	"accreditation/internal/service"
	"accreditation/internal/transport/rest"
	"accreditation/internal/transport/ws"
	"accreditation/internal/upload"
	"accreditation/internal/wizard"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	Mongo *mongo.Client
	Redis *redis.Client

	Catalog      *model.Catalog
	Criteria     catalog.CriteriaSource
	Applications repository.ApplicationRepo

	Wizards     *service.WizardService
	Documents   *service.DocumentService
	Submissions *service.SubmissionService
	Hub         *ws.Hub

	Handler http.Handler
}

// Connect opens and pings MongoDB
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// New connects to the stores and builds every component
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	mongoClient, err := Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	a.Mongo = mongoClient
	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	db := mongoClient.Database(cfg.MongoDatabase)

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	// Initialize repositories
	a.Applications = repository.NewApplicationRepo(db)
	if err := a.Applications.EnsureIndexes(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	documents, err := repository.NewDocumentStore(db)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to open document bucket: %w", err)
	}
	criteria := cache.NewCriteriaCache(a.Redis, repository.NewCatalogRepo(db), logger)

	a.Catalog, a.Criteria, err = LoadCatalog(ctx, cfg.CatalogPath, criteria, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := catalog.Validate(a.Catalog); err != nil {
		if cfg.StrictCatalog {
			a.Close(ctx)
			return nil, err
		}
		logger.Warn("catalog has defects", zap.Error(err))
	}

	// Initialize services
	a.Submissions = service.NewSubmissionService(a.Applications, a.Catalog, logger)
	submitters := func(sessionID string) wizard.Submitter {
		return service.NewRetrySubmitter(a.Submissions.ForSession(sessionID), cfg.SubmitTimeout, cfg.SubmitRetries, logger)
	}
	a.Wizards = service.NewWizardService(a.Catalog, cache.NewWizardCache(a.Redis, cfg.RedisTTL), submitters, cfg.StrictCatalog, logger)

	policy := upload.Policy{
		MaxSizeMB:         cfg.UploadMaxSizeMB,
		AllowedTypes:      cfg.UploadAllowedTypes,
		AllowedExtensions: cfg.UploadAllowedExtensions,
	}
	a.Documents = service.NewDocumentService(upload.NewManager(documents, policy, logger), a.Wizards, logger)

	// Inject broadcaster (hub implements service.Broadcaster)
	a.Hub = ws.NewHub(logger)
	a.Wizards.SetBroadcaster(a.Hub)
	a.Documents.SetBroadcaster(a.Hub)

	a.Handler = rest.NewRouter(&rest.Container{
		WizardService:     a.Wizards,
		DocumentService:   a.Documents,
		SubmissionService: a.Submissions,
		Criteria:          a.Criteria,
		WSHub:             a.Hub,
		CORS:              rest.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		Logger:            logger,
	})
	return a, nil
}

// LoadCatalog reads the catalog file and fills its criteria steps from the
// stored checklist. When nothing has been seeded the file's own areas are used.
func LoadCatalog(ctx context.Context, path string, stored catalog.CriteriaSource, logger *zap.Logger) (*model.Catalog, catalog.CriteriaSource, error) {
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, nil, err
	}

	var src catalog.CriteriaSource = catalog.NewStaticSource(cat)
	if stored != nil {
		areas, err := stored.GetAreas(ctx)
		switch {
		case err != nil:
			logger.Warn("stored criteria unavailable, using catalog areas", zap.Error(err))
		case len(areas) == 0:
			logger.Info("no stored criteria, using catalog areas")
		default:
			src = stored
		}
	}

	resolved, err := catalog.Resolve(ctx, cat, src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	logger.Info("catalog loaded",
		zap.String("version", resolved.Version),
		zap.Int("request_types", len(resolved.RequestTypes)))
	return resolved, src, nil
}

// Close releases the hub and store connections
func (a *App) Close(ctx context.Context) {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close Redis", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.Logger.Warn("failed to disconnect MongoDB", zap.Error(err))
		}
	}
}
