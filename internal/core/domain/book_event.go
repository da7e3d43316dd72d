package domain

import "time"

// BookAction names the kind of catalog write recorded in the audit trail.
type BookAction string

const (
	BookCreated BookAction = "created"
	BookUpdated BookAction = "updated"
	BookDeleted BookAction = "deleted"
)

// BookEvent is an append-only audit record of a catalog write.
type BookEvent struct {
	BookID     string
	Action     BookAction
	ActorID    string
	OccurredAt time.Time
}
