package store

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a room is not found.
var ErrNotFound = errors.New("room not found")

// Open connects to the SQLite database at path and runs migrations.
// SQLite allows one writer, so the pool is limited to a single connection.
func Open(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&User{}, &Room{}, &Message{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Repository provides access to rooms and messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnsureRoom returns the room called name, creating it if needed.
// Concurrent callers racing on the same name end up with the same record.
func (r *Repository) EnsureRoom(ctx context.Context, name string) (domain.Room, error) {
	room := Room{Name: name}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&room).Error
	if err != nil {
		return domain.Room{}, fmt.Errorf("failed to create room %q: %w", name, err)
	}
	return r.GetRoomByName(ctx, name)
}

// GetRoomByName retrieves a room by its name.
func (r *Repository) GetRoomByName(ctx context.Context, name string) (domain.Room, error) {
	var room Room
	if err := r.db.WithContext(ctx).First(&room, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Room{}, ErrNotFound
		}
		return domain.Room{}, fmt.Errorf("failed to find room %q: %w", name, err)
	}
	return toDomainRoom(room), nil
}

// ListRooms retrieves all rooms ordered by name.
func (r *Repository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []Room
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	result := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		result = append(result, toDomainRoom(room))
	}
	return result, nil
}

// CreateMessage appends a message authored by author to room.
// The author record is created or renamed in the same transaction.
func (r *Repository) CreateMessage(ctx context.Context, room domain.Room, author domain.Identity, body string) (domain.Message, error) {
	msg := Message{RoomID: room.ID, AuthorID: author.ID, Body: body}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := User{ID: author.ID, Username: author.Username}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
		}).Create(&user).Error; err != nil {
			return fmt.Errorf("failed to upsert author: %w", err)
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to create message in room %q: %w", room.Name, err)
	}

	return domain.Message{
		ID:        msg.ID,
		Room:      room.Name,
		AuthorID:  author.ID,
		Author:    author.Username,
		Body:      body,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// ListMessages retrieves every message of room in insertion order.
func (r *Repository) ListMessages(ctx context.Context, room domain.Room) ([]domain.Message, error) {
	var messages []Message
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("room_id = ?", room.ID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of room %q: %w", room.Name, err)
	}

	result := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		result = append(result, domain.Message{
			ID:        msg.ID,
			Room:      room.Name,
			AuthorID:  msg.AuthorID,
			Author:    msg.Author.Username,
			Body:      msg.Body,
			CreatedAt: msg.CreatedAt,
		})
	}
	return result, nil
}

// ListRoomMembers retrieves the users who have posted in room, ordered by username.
func (r *Repository) ListRoomMembers(ctx context.Context, room domain.Room) ([]domain.Identity, error) {
	authors := r.db.Model(&Message{}).Select("author_id").Where("room_id = ?", room.ID)

	var users []User
	err := r.db.WithContext(ctx).
		Where("id IN (?)", authors).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members of room %q: %w", room.Name, err)
	}

	result := make([]domain.Identity, 0, len(users))
	for _, user := range users {
		result = append(result, domain.Identity{ID: user.ID, Username: user.Username})
	}
	return result, nil
}

func toDomainRoom(room Room) domain.Room {
	return domain.Room{
		ID:        room.ID,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
	}
}
