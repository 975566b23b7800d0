package domain

import "time"

// PollStatus enumerates lifecycle states for polls.
type PollStatus string

const (
	PollStatusDraft     PollStatus = "DRAFT"
	PollStatusActive    PollStatus = "ACTIVE"
	PollStatusCompleted PollStatus = "COMPLETED"
	PollStatusCancelled PollStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s PollStatus) IsTerminal() bool {
	return s == PollStatusCompleted || s == PollStatusCancelled
}

// PollOption is one selectable choice. Votes is a denormalized counter;
// the authoritative tally is derived by grouping persisted votes.
type PollOption struct {
	ID    string
	Text  string
	Votes int
}

// Poll is the aggregate for a single classroom question. At most one poll
// may be ACTIVE system-wide; StartTime is set when the poll goes ACTIVE
// and stays set once COMPLETED.
type Poll struct {
	ID        string
	Question  string
	Options   []PollOption
	Duration  int // seconds
	StartTime *time.Time
	Status    PollStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindOption resolves a selected option by option id or option text.
func (p *Poll) FindOption(selected string) (PollOption, bool) {
	for _, opt := range p.Options {
		if opt.Text == selected || opt.ID == selected {
			return opt, true
		}
	}
	return PollOption{}, false
}

// ExpiresAt returns the instant the poll stops accepting votes. The second
// return value is false while the poll has never been started.
func (p *Poll) ExpiresAt() (time.Time, bool) {
	if p.StartTime == nil {
		return time.Time{}, false
	}
	return p.StartTime.Add(time.Duration(p.Duration) * time.Second), true
}

// ExpiredAt reports whether the poll deadline has passed at the given
// instant. The comparison is inclusive: a vote arriving exactly at the
// deadline is expired.
func (p *Poll) ExpiredAt(now time.Time) bool {
	deadline, ok := p.ExpiresAt()
	if !ok {
		return false
	}
	return !now.Before(deadline)
}
