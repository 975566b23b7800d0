package domain

import "time"

// Vote records a single student's choice on a poll. The pair
// (PollID, StudentName) is unique: a second vote for the same pair is
// rejected, never overwritten. SelectedOption holds whatever the student
// submitted, either the option text or the option id.
type Vote struct {
	ID             string
	PollID         string
	StudentName    string
	SelectedOption string
	CreatedAt      time.Time
}
