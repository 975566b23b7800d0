package service

import (
	"sync"

	"github.com/spec-kit/polling-service/internal/domain"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// ParticipantRegistry tracks connected students per lobby, plus a
// temporary ban set for kicked names. Purely in-memory: nothing here
// survives a restart.
type ParticipantRegistry struct {
	mu     sync.Mutex
	active map[string]map[string]string   // lobby -> name -> connection id
	banned map[string]map[string]struct{} // lobby -> banned names
}

// NewParticipantRegistry builds an empty registry.
func NewParticipantRegistry() *ParticipantRegistry {
	return &ParticipantRegistry{
		active: make(map[string]map[string]string),
		banned: make(map[string]map[string]struct{}),
	}
}

// Add registers a student in a lobby. Banned names cannot rejoin until
// unkicked; a name already connected in the lobby is rejected.
func (r *ParticipantRegistry) Add(lobbyID, name, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bans, ok := r.banned[lobbyID]; ok {
		if _, isBanned := bans[name]; isBanned {
			return apperrors.NewNameBanned("you have been removed by the teacher and cannot rejoin")
		}
	}

	participants, ok := r.active[lobbyID]
	if !ok {
		participants = make(map[string]string)
		r.active[lobbyID] = participants
	}
	if _, inUse := participants[name]; inUse {
		return apperrors.NewNameInUse("student name already in use in this lobby")
	}

	participants[name] = connectionID
	return nil
}

// RemoveByConnection drops whichever participant holds the connection id.
// Only the connection identity is known on disconnect, so this is a linear
// scan over the active sets.
func (r *ParticipantRegistry) RemoveByConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for lobbyID, participants := range r.active {
		for name, connID := range participants {
			if connID == connectionID {
				delete(participants, name)
				if len(participants) == 0 {
					delete(r.active, lobbyID)
				}
				return
			}
		}
	}
}

// List returns the lobby roster: active participants plus banned names.
func (r *ParticipantRegistry) List(lobbyID string) domain.Roster {
	r.mu.Lock()
	defer r.mu.Unlock()

	var students []domain.Participant
	for name := range r.active[lobbyID] {
		students = append(students, domain.Participant{
			Name:   name,
			Status: domain.ParticipantStatusActive,
		})
	}
	for name := range r.banned[lobbyID] {
		students = append(students, domain.Participant{
			Name:   name,
			Status: domain.ParticipantStatusKicked,
		})
	}

	return domain.Roster{Count: len(students), Students: students}
}

// Kick removes a student from the active set, bans the name for the lobby
// and returns the evicted connection id so the caller can force-disconnect.
func (r *ParticipantRegistry) Kick(lobbyID, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants, ok := r.active[lobbyID]
	if !ok {
		return "", apperrors.NewNotFound("lobby participants", map[string]any{"lobby_id": lobbyID})
	}
	connectionID, ok := participants[name]
	if !ok {
		return "", apperrors.NewNotFound("student", map[string]any{"student_name": name})
	}

	delete(participants, name)

	bans, ok := r.banned[lobbyID]
	if !ok {
		bans = make(map[string]struct{})
		r.banned[lobbyID] = bans
	}
	bans[name] = struct{}{}

	return connectionID, nil
}

// Unkick clears a name from the lobby's ban set.
func (r *ParticipantRegistry) Unkick(lobbyID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bans, ok := r.banned[lobbyID]
	if !ok {
		return apperrors.NewNotBanned("student is not in the kick list")
	}
	if _, isBanned := bans[name]; !isBanned {
		return apperrors.NewNotBanned("student is not in the kick list")
	}

	delete(bans, name)
	if len(bans) == 0 {
		delete(r.banned, lobbyID)
	}
	return nil
}

// Clear wipes both active and banned sets for a lobby.
func (r *ParticipantRegistry) Clear(lobbyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, lobbyID)
	delete(r.banned, lobbyID)
}
