package jobs

import (
	"context"
	"fmt"

	"github.com/desertthunder/roller/internal/mailer"
)

// MailJob delivers one notification message.
type MailJob struct {
	Deliverer mailer.Deliverer
	Message   *mailer.Message
}

func NewMailJob(d mailer.Deliverer, msg *mailer.Message) *MailJob {
	return &MailJob{Deliverer: d, Message: msg}
}

func (j *MailJob) Name() string {
	if j.Message == nil {
		return "mail"
	}
	return "mail:" + j.Message.To
}

func (j *MailJob) Perform(ctx context.Context) error {
	if j.Deliverer == nil || j.Message == nil {
		return nil
	}
	if err := j.Deliverer.Deliver(ctx, j.Message); err != nil {
		return fmt.Errorf("failed to deliver mail to %s: %w", j.Message.To, err)
	}
	return nil
}

// EnqueueNotification renders n and enqueues one [MailJob] per recipient.
func EnqueueNotification(q Enqueuer, m *mailer.Mailer, d mailer.Deliverer, n mailer.Notification) error {
	if q == nil || m == nil || d == nil {
		return nil
	}

	messages, err := m.Notify(n)
	if err != nil {
		return fmt.Errorf("failed to build %s notification: %w", n.Event, err)
	}
	for _, msg := range messages {
		if err := q.Enqueue(NewMailJob(d, msg)); err != nil {
			return err
		}
	}
	return nil
}
