package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
)

// listRooms handles the store.list-rooms service request.
func (m *StoreModule) listRooms(ctx context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	if m.repo == nil {
		return ListRoomsResponse{}, ErrNotReady
	}

	rooms, err := m.repo.ListRooms(ctx)
	if err != nil {
		return ListRoomsResponse{}, err
	}

	resp := ListRoomsResponse{Rooms: make([]RoomResponse, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, RoomResponse{
			ID:        room.ID,
			Name:      room.Name,
			CreatedAt: room.CreatedAt,
		})
	}
	return resp, nil
}

// getHistory handles the store.get-history service request.
func (m *StoreModule) getHistory(ctx context.Context, req GetHistoryRequest, _ *mono.Msg) (GetHistoryResponse, error) {
	if req.Room == "" {
		return GetHistoryResponse{}, fmt.Errorf("room is required")
	}
	if m.repo == nil {
		return GetHistoryResponse{}, ErrNotReady
	}

	room, err := m.repo.GetRoomByName(ctx, req.Room)
	if errors.Is(err, ErrNotFound) {
		return GetHistoryResponse{Room: req.Room, Messages: []MessageResponse{}}, nil
	}
	if err != nil {
		return GetHistoryResponse{}, err
	}

	messages, err := m.repo.ListMessages(ctx, room)
	if err != nil {
		return GetHistoryResponse{}, err
	}

	resp := GetHistoryResponse{
		Found:    true,
		Room:     room.Name,
		Messages: make([]MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:        msg.ID,
			AuthorID:  msg.AuthorID,
			Author:    msg.Author,
			Body:      msg.Body,
			CreatedAt: msg.CreatedAt,
		})
	}
	return resp, nil
}

// listMembers handles the store.list-members service request.
func (m *StoreModule) listMembers(ctx context.Context, req ListMembersRequest, _ *mono.Msg) (ListMembersResponse, error) {
	if req.Room == "" {
		return ListMembersResponse{}, fmt.Errorf("room is required")
	}
	if m.repo == nil {
		return ListMembersResponse{}, ErrNotReady
	}

	room, err := m.repo.GetRoomByName(ctx, req.Room)
	if errors.Is(err, ErrNotFound) {
		return ListMembersResponse{Room: req.Room, Members: []MemberResponse{}}, nil
	}
	if err != nil {
		return ListMembersResponse{}, err
	}

	users, err := m.repo.ListRoomMembers(ctx, room)
	if err != nil {
		return ListMembersResponse{}, err
	}

	resp := ListMembersResponse{
		Found:   true,
		Room:    room.Name,
		Members: make([]MemberResponse, 0, len(users)),
	}
	for _, user := range users {
		resp.Members = append(resp.Members, MemberResponse{UserID: user.ID, Username: user.Username})
	}
	return resp, nil
}
