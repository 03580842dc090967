package models

import (
	"time"

	"github.com/google/uuid"
)

// PollStatus is the lifecycle state of a poll.
type PollStatus string

const (
	PollStatusActive PollStatus = "active"
	PollStatusEnded  PollStatus = "ended"
)

// Poll is one question-and-answer round. At most one poll is active at a time;
// ended polls are never deleted and form the history.
type Poll struct {
	ID        uuid.UUID    `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	MaxTime   int          `json:"maxTime"` // time limit in seconds
	Status    PollStatus   `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	EndedAt   *time.Time   `json:"endedAt,omitempty"`
	Answers   []PollAnswer `json:"answers"`
}

// PollOption is one choice with its running vote count. Votes always equals the
// number of answers referencing this option's index.
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollAnswer records one student's choice. A student appears at most once per poll.
type PollAnswer struct {
	StudentID   uuid.UUID `json:"studentId"`
	StudentName string    `json:"studentName"`
	OptionIndex int       `json:"optionIndex"`
	AnsweredAt  time.Time `json:"answeredAt"`
}

// Clone returns a deep copy, safe to hand to another goroutine while the
// original keeps being mutated.
func (p *Poll) Clone() *Poll {
	cp := *p
	cp.Options = make([]PollOption, len(p.Options))
	copy(cp.Options, p.Options)
	cp.Answers = make([]PollAnswer, len(p.Answers))
	copy(cp.Answers, p.Answers)
	if p.EndedAt != nil {
		t := *p.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

// HasAnswerFrom reports whether the student already answered this poll.
func (p *Poll) HasAnswerFrom(studentID uuid.UUID) bool {
	for _, a := range p.Answers {
		if a.StudentID == studentID {
			return true
		}
	}
	return false
}
