package entity

import "time"

// Interaction is one completed question/answer exchange. Id is a monotonic
// sequence number; rows are never updated once written.
type Interaction struct {
	Id        uint64
	Query     string
	Answer    string
	Truncated bool
	CreatedAt time.Time
}
