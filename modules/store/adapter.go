package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ArchivePort defines read access to persisted rooms for other modules.
type ArchivePort interface {
	ListRooms(ctx context.Context) ([]RoomResponse, error)
	GetHistory(ctx context.Context, room string) ([]MessageResponse, error)
	ListMembers(ctx context.Context, room string) ([]MemberResponse, error)
}

// archiveAdapter implements ArchivePort using the service container.
type archiveAdapter struct {
	container mono.ServiceContainer
}

// NewArchiveAdapter creates a new adapter for store services.
// container is the ServiceContainer from the store module received via SetDependencyServiceContainer.
func NewArchiveAdapter(container mono.ServiceContainer) ArchivePort {
	if container == nil {
		panic("store: ServiceContainer is nil")
	}
	return &archiveAdapter{container: container}
}

// ListRooms returns all persisted rooms.
func (a *archiveAdapter) ListRooms(ctx context.Context) ([]RoomResponse, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return resp.Rooms, nil
}

// GetHistory returns the persisted messages of a room, or ErrNotFound.
func (a *archiveAdapter) GetHistory(ctx context.Context, room string) ([]MessageResponse, error) {
	req := GetHistoryRequest{Room: room}
	var resp GetHistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if !resp.Found {
		return nil, ErrNotFound
	}
	return resp.Messages, nil
}

// ListMembers returns the users who posted in a room, or ErrNotFound.
func (a *archiveAdapter) ListMembers(ctx context.Context, room string) ([]MemberResponse, error) {
	req := ListMembersRequest{Room: room}
	var resp ListMembersResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListMembers,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if !resp.Found {
		return nil, ErrNotFound
	}
	return resp.Members, nil
}
