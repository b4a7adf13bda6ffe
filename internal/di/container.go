package di

import (
	"fmt"

	"github.com/campushq/event-service/internal/handler"
	"github.com/campushq/event-service/internal/repository"
	"github.com/campushq/event-service/internal/service"
	"github.com/campushq/event-service/pkg/database"
	"github.com/campushq/event-service/pkg/redis"
)

// Container holds all dependencies for the event service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	EventRepo        repository.EventRepository
	RegistrationRepo repository.RegistrationRepository

	// Services
	TicketIssuer        service.TicketIssuer
	Notifier            service.Notifier
	EventService        service.EventService
	RegistrationService service.RegistrationService

	// Handlers
	HealthHandler       *handler.HealthHandler
	EventHandler        *handler.EventHandler
	RegistrationHandler *handler.RegistrationHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB       *database.PostgresDB
	Redis    *redis.Client
	Notifier service.Notifier

	TicketSecret     string
	TicketIssuerName string
	MaxIssueAttempts int
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Notifier: cfg.Notifier,
	}
	if c.Notifier == nil {
		c.Notifier = service.NewNoOpNotifier()
	}

	// Initialize repositories
	c.EventRepo = repository.NewPostgresEventRepository(c.DB.Pool())
	c.RegistrationRepo = repository.NewPostgresRegistrationRepository(c.DB.Pool())

	// Initialize services
	issuer, err := service.NewTicketIssuer(&service.TicketIssuerConfig{
		Secret: cfg.TicketSecret,
		Issuer: cfg.TicketIssuerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket issuer: %w", err)
	}
	c.TicketIssuer = issuer

	c.EventService = service.NewEventService(c.EventRepo, c.Notifier)
	c.RegistrationService = service.NewRegistrationService(
		c.EventRepo,
		c.RegistrationRepo,
		c.TicketIssuer,
		c.Notifier,
		&service.RegistrationServiceConfig{MaxIssueAttempts: cfg.MaxIssueAttempts},
	)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.RegistrationHandler = handler.NewRegistrationHandler(c.RegistrationService)

	return c, nil
}

// Close releases container resources
func (c *Container) Close() {
	if c.Notifier != nil {
		_ = c.Notifier.Close()
	}
}
