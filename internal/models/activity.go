package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/roller/internal/shared"
)

// Comment is a markdown note left on an issue or task.
type Comment struct {
	Record
	UserID     string     `validate:"required"`
	TargetType TargetType `validate:"required,oneof=issue task"`
	TargetID   string     `validate:"required"`
	Body       string     `validate:"required,max=50000"`
}

// NewComment creates an unsaved comment by userID on target.
func NewComment(userID string, target Target, body string) *Comment {
	return &Comment{
		Record:     newRecord(),
		UserID:     userID,
		TargetType: target.Type,
		TargetID:   target.ID,
		Body:       strings.TrimSpace(body),
	}
}

func (c *Comment) Validate() error { return Validate(c) }

func (c *Comment) Target() Target { return Target{Type: c.TargetType, ID: c.TargetID} }

// Subscription records that a user wants notifications about a target.
type Subscription struct {
	Record
	UserID     string     `validate:"required"`
	TargetType TargetType `validate:"required,oneof=issue task project category"`
	TargetID   string     `validate:"required"`
}

// NewSubscription creates an unsaved subscription of userID to target.
func NewSubscription(userID string, target Target) *Subscription {
	return &Subscription{Record: newRecord(), UserID: userID, TargetType: target.Type, TargetID: target.ID}
}

func (s *Subscription) Validate() error { return Validate(s) }

func (s *Subscription) Target() Target { return Target{Type: s.TargetType, ID: s.TargetID} }

// ReviewState is the outcome of a task review.
type ReviewState string

const (
	ReviewPending     ReviewState = "pending"
	ReviewApproved    ReviewState = "approved"
	ReviewDisapproved ReviewState = "disapproved"
)

// Review is a request for approval of a task. UserID is the requester until the review is
// decided, then the reviewer.
type Review struct {
	Record
	TaskID string      `validate:"required"`
	UserID string      `validate:"required"`
	Body   string      `validate:"max=50000"`
	State  ReviewState `validate:"required,oneof=pending approved disapproved"`
}

// NewReview creates an unsaved pending review of a task.
func NewReview(taskID, userID string) *Review {
	return &Review{Record: newRecord(), TaskID: taskID, UserID: userID, State: ReviewPending}
}

func (r *Review) Validate() error { return Validate(r) }

func (r *Review) Pending() bool { return r.State == ReviewPending }

// Decide records the reviewer's verdict on a pending review.
func (r *Review) Decide(reviewerID string, approved bool, body string) error {
	if !r.Pending() {
		return fmt.Errorf("%w: review already %s", shared.ErrInvalidState, r.State)
	}
	r.UserID = reviewerID
	r.Body = strings.TrimSpace(body)
	r.State = ReviewDisapproved
	if approved {
		r.State = ReviewApproved
	}
	return nil
}

// Session is a signed-in browser session.
type Session struct {
	Token     string
	UserID    string
	CSRFToken string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a session for userID that lasts ttl.
func NewSession(userID string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		Token:     shared.GenerateToken(),
		UserID:    userID,
		CSRFToken: shared.GenerateToken(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }
