// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/fady17/garagehub-go/internal/application/services"
	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/geo"
	"github.com/fady17/garagehub-go/internal/infrastructure/httpclient"
	"github.com/fady17/garagehub-go/internal/infrastructure/messaging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/anonymous"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/database"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/kv"
	"github.com/fady17/garagehub-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Backend services
	SessionIssueService *services.SessionIssueService
	PreferenceService   *services.PreferenceService
	CartService         *services.CartService
	MergeService        *services.MergeService
	UserAuthService     *services.UserAuthService

	// Storefront core (client side of the same process in dev mode)
	SessionManager *services.SessionManager
	Coordinator    *services.AuthTransitionCoordinator
	LocationSync   *services.LocationPreferenceSync
	StatusHolder   *session.StatusHolder
	UserCredential *services.UserCredential
	APIClient      *httpclient.Client
	StatusFeed     *messaging.StatusFeed

	// Infrastructure Dependencies
	DB          *database.DB
	Repository  *anonymous.Repository
	Broadcaster *messaging.StatusBroadcaster
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *Container {
	repo := anonymous.NewRepository(db)
	broadcaster := messaging.NewStatusBroadcaster(logger)

	apiClient := httpclient.New(config.APIBaseURL, logger)
	tokenStore := kv.NewSQLStore(db)
	sessionManager := services.NewSessionManager(tokenStore, config.TokenStorageKey, apiClient, config.TokenExpiryBuffer, logger, perfTracker)

	statusHolder := session.NewStatusHolder()
	userCredential := services.NewUserCredential()

	mergeClient := services.NewAPIMergeClient(apiClient, userCredential)
	cartRefresher := services.NewAPICartRefresher(apiClient, sessionManager, statusHolder, userCredential, logger)
	coordinator := services.NewAuthTransitionCoordinator(sessionManager, mergeClient, cartRefresher, logger, perfTracker)

	locator := geo.NewIPLocator(config.GeoEndpointURL, nil)
	locationSync := services.NewLocationPreferenceSync(
		locator,
		apiClient,
		sessionManager,
		statusHolder,
		config.GeoThrottleWindow,
		config.GeoAcquireTimeout,
		nil,
		logger,
		perfTracker,
	)

	return &Container{
		SessionIssueService: services.NewSessionIssueService(repo, logger, perfTracker),
		PreferenceService:   services.NewPreferenceService(repo, logger, perfTracker),
		CartService:         services.NewCartService(repo, logger, perfTracker),
		MergeService:        services.NewMergeService(repo, logger, perfTracker),
		UserAuthService:     services.NewUserAuthService(repo, logger, perfTracker),

		SessionManager: sessionManager,
		Coordinator:    coordinator,
		LocationSync:   locationSync,
		StatusHolder:   statusHolder,
		UserCredential: userCredential,
		APIClient:      apiClient,
		StatusFeed:     messaging.NewStatusFeed(config.StatusFeedURL, logger),

		DB:          db,
		Repository:  repo,
		Broadcaster: broadcaster,
		Logger:      logger,
		PerfTracker: perfTracker,
	}
}
