package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"gorm.io/gorm"
)

// ErrNotReady is returned when the store is used before Start.
var ErrNotReady = errors.New("store not started")

// StoreModule persists rooms and messages in SQLite through GORM.
type StoreModule struct {
	db     *gorm.DB
	repo   *Repository
	dbPath string
	debug  bool
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*StoreModule)(nil)
var _ mono.ServiceProviderModule = (*StoreModule)(nil)
var _ mono.HealthCheckableModule = (*StoreModule)(nil)

// NewModule creates a new store module backed by the database file at dbPath.
func NewModule(dbPath string, debug bool, logger types.Logger) *StoreModule {
	return &StoreModule{
		dbPath: dbPath,
		debug:  debug,
		logger: logger,
	}
}

// Name returns the module name.
func (m *StoreModule) Name() string {
	return "store"
}

// RegisterServices registers request-reply services in the service container.
func (m *StoreModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListRooms, json.Unmarshal, json.Marshal, m.listRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetHistory, json.Unmarshal, json.Marshal, m.getHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetHistory, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListMembers, json.Unmarshal, json.Marshal, m.listMembers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListMembers, err)
	}

	m.logger.Info("Registered services",
		"services", []string{ServiceListRooms, ServiceGetHistory, ServiceListMembers})
	return nil
}

// Start opens the database and runs migrations.
func (m *StoreModule) Start(_ context.Context) error {
	m.logger.Info("Connecting to SQLite database", "path", m.dbPath)

	db, err := Open(m.dbPath, m.debug)
	if err != nil {
		return err
	}

	m.db = db
	m.repo = NewRepository(db)
	m.logger.Info("Store module started")
	return nil
}

// Stop closes the database connection.
func (m *StoreModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Database connection closed")
	return nil
}

// Health pings the database.
func (m *StoreModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// EnsureRoom implements the room registry's backing store.
func (m *StoreModule) EnsureRoom(ctx context.Context, name string) (domain.Room, error) {
	if m.repo == nil {
		return domain.Room{}, ErrNotReady
	}
	return m.repo.EnsureRoom(ctx, name)
}

// CreateMessage persists a chat message.
func (m *StoreModule) CreateMessage(ctx context.Context, room domain.Room, author domain.Identity, body string) (domain.Message, error) {
	if m.repo == nil {
		return domain.Message{}, ErrNotReady
	}
	return m.repo.CreateMessage(ctx, room, author, body)
}

// ListMessages returns the persisted history of a room.
func (m *StoreModule) ListMessages(ctx context.Context, room domain.Room) ([]domain.Message, error) {
	if m.repo == nil {
		return nil, ErrNotReady
	}
	return m.repo.ListMessages(ctx, room)
}
