package domain

// ParticipantStatus marks a roster entry as connected or kicked.
type ParticipantStatus string

const (
	ParticipantStatusActive ParticipantStatus = "active"
	ParticipantStatusKicked ParticipantStatus = "kicked"
)

// Participant is an ephemeral roster entry scoped to a lobby. It is never
// persisted; the registry owns it for the lifetime of the connection.
type Participant struct {
	Name   string
	Status ParticipantStatus
}

// Roster is the participant summary returned for a lobby: active
// participants plus names currently on the ban list.
type Roster struct {
	Count    int
	Students []Participant
}

// ActiveCount returns the number of connected (non-kicked) participants.
func (r Roster) ActiveCount() int {
	n := 0
	for _, s := range r.Students {
		if s.Status == ParticipantStatusActive {
			n++
		}
	}
	return n
}
