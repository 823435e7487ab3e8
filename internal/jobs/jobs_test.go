package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/roller/internal/mailer"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/services"
	"github.com/desertthunder/roller/internal/shared"
	th "github.com/desertthunder/roller/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memIssues struct {
	issues map[string]*models.Issue
	err    error
}

func (s *memIssues) Get(id string) (*models.Issue, error) {
	if s.err != nil {
		return nil, s.err
	}
	if i, ok := s.issues[id]; ok {
		return i, nil
	}
	return nil, shared.ErrNotFound
}

func (s *memIssues) SetRemote(id string, number int, url string) error {
	i, ok := s.issues[id]
	if !ok {
		return shared.ErrNotFound
	}
	i.GitHubNumber, i.GitHubURL = number, url
	return nil
}

type memProjects map[string]*models.Project

func (s memProjects) Get(id string) (*models.Project, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

type memComments map[string]*models.Comment

func (s memComments) Get(id string) (*models.Comment, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

type fixture struct {
	deps    Deps
	client  *th.MockIssueService
	issues  *memIssues
	issue   *models.Issue
	project *models.Project
}

func setup(t *testing.T, repo string, remote int) fixture {
	t.Helper()

	project := models.NewProject("c1", "Roller")
	project.SetID("p1")
	project.GitHubRepo = repo

	issue := models.NewIssue("p1", "u1", models.IssueBug, "Crash", "It crashed")
	issue.SetID("i1")
	issue.GitHubNumber = remote

	comment := models.NewComment("u1", issue.Target(), "Still happening")
	comment.SetID("c1")

	client := &th.MockIssueService{}
	issues := &memIssues{issues: map[string]*models.Issue{"i1": issue}}

	return fixture{
		deps: Deps{
			Issues:   issues,
			Projects: memProjects{"p1": project},
			Comments: memComments{"c1": comment},
			Client:   client,
		},
		client:  client,
		issues:  issues,
		issue:   issue,
		project: project,
	}
}

func TestOpenIssueJob(t *testing.T) {
	t.Run("Creates Remote Issue", func(t *testing.T) {
		f := setup(t, "acme/roller", 0)
		f.client.On("CreateIssue", mock.Anything, "acme/roller", "Crash", "It crashed").
			Return(&services.RemoteIssue{Number: 9, URL: "https://github.com/acme/roller/issues/9"}, nil)

		require.NoError(t, NewOpenIssueJob(f.deps, "i1").Perform(context.Background()))

		f.client.AssertExpectations(t)
		assert.Equal(t, 9, f.issue.GitHubNumber)
		assert.Equal(t, "https://github.com/acme/roller/issues/9", f.issue.GitHubURL)
	})

	t.Run("Already Mirrored", func(t *testing.T) {
		f := setup(t, "acme/roller", 4)
		require.NoError(t, NewOpenIssueJob(f.deps, "i1").Perform(context.Background()))
		f.client.AssertNotCalled(t, "CreateIssue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Project Without Repo", func(t *testing.T) {
		f := setup(t, "", 0)
		require.NoError(t, NewOpenIssueJob(f.deps, "i1").Perform(context.Background()))
		f.client.AssertNotCalled(t, "CreateIssue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("API Failure", func(t *testing.T) {
		f := setup(t, "acme/roller", 0)
		f.client.On("CreateIssue", mock.Anything, "acme/roller", "Crash", "It crashed").
			Return(nil, &services.APIError{StatusCode: 500, Message: "boom"})

		err := NewOpenIssueJob(f.deps, "i1").Perform(context.Background())
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.Zero(t, f.issue.GitHubNumber)
	})
}

func TestRepoIssueJobsNoOp(t *testing.T) {
	type build func(Deps) Job
	jobs := map[string]build{
		"open":    func(d Deps) Job { return NewOpenIssueJob(d, "i1") },
		"close":   func(d Deps) Job { return NewCloseIssueJob(d, "i1") },
		"reopen":  func(d Deps) Job { return NewReopenIssueJob(d, "i1") },
		"comment": func(d Deps) Job { return NewCommentIssueJob(d, "i1", "c1") },
	}

	for name, newJob := range jobs {
		t.Run(name+" without client", func(t *testing.T) {
			f := setup(t, "acme/roller", 3)
			f.deps.Client = nil
			assert.NoError(t, newJob(f.deps).Perform(context.Background()))
		})

		t.Run(name+" with typed nil client", func(t *testing.T) {
			f := setup(t, "acme/roller", 3)
			var gh *services.GitHubClient
			f.deps.Client = gh
			assert.NoError(t, newJob(f.deps).Perform(context.Background()))
		})

		t.Run(name+" without issue", func(t *testing.T) {
			f := setup(t, "acme/roller", 3)
			delete(f.issues.issues, "i1")
			assert.NoError(t, newJob(f.deps).Perform(context.Background()))
			assert.Empty(t, f.client.Calls)
		})
	}

	for _, name := range []string{"close", "reopen", "comment"} {
		t.Run(name+" without remote number", func(t *testing.T) {
			f := setup(t, "acme/roller", 0)
			assert.NoError(t, jobs[name](f.deps).Perform(context.Background()))
			assert.Empty(t, f.client.Calls)
		})

		t.Run(name+" without project repo", func(t *testing.T) {
			f := setup(t, "", 3)
			assert.NoError(t, jobs[name](f.deps).Perform(context.Background()))
			assert.Empty(t, f.client.Calls)
		})
	}

	t.Run("store failure is an error", func(t *testing.T) {
		f := setup(t, "acme/roller", 3)
		f.issues.err = errors.New("disk on fire")
		assert.Error(t, NewCloseIssueJob(f.deps, "i1").Perform(context.Background()))
	})
}

func TestCloseReopenIssueJobs(t *testing.T) {
	tests := []struct {
		name  string
		job   func(Deps) Job
		state string
	}{
		{"close", func(d Deps) Job { return NewCloseIssueJob(d, "i1") }, services.StateClosed},
		{"reopen", func(d Deps) Job { return NewReopenIssueJob(d, "i1") }, services.StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, "acme/roller", 3)
			f.client.On("SetIssueState", mock.Anything, "acme/roller", 3, tt.state).
				Return(&services.RemoteIssue{Number: 3, State: tt.state}, nil)

			require.NoError(t, tt.job(f.deps).Perform(context.Background()))
			f.client.AssertExpectations(t)
		})
	}
}

func TestCommentIssueJob(t *testing.T) {
	t.Run("Posts Comment", func(t *testing.T) {
		f := setup(t, "acme/roller", 3)
		f.client.On("CreateComment", mock.Anything, "acme/roller", 3, "Still happening").
			Return(&services.RemoteComment{ID: 1}, nil)

		require.NoError(t, NewCommentIssueJob(f.deps, "i1", "c1").Perform(context.Background()))
		f.client.AssertExpectations(t)
	})

	t.Run("Missing Comment", func(t *testing.T) {
		f := setup(t, "acme/roller", 3)
		require.NoError(t, NewCommentIssueJob(f.deps, "i1", "gone").Perform(context.Background()))
		assert.Empty(t, f.client.Calls)
	})
}

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                      { return j.name }
func (j funcJob) Perform(ctx context.Context) error { return j.fn(ctx) }

func TestQueue(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		assert.Equal(t, 2, NewQueue(QueueOpts{}).Workers())
		assert.Equal(t, 8, NewQueue(QueueOpts{Workers: 50}).Workers())
	})

	t.Run("Runs Every Job", func(t *testing.T) {
		events := make(chan Event, 10)
		q := NewQueue(QueueOpts{Workers: 3, RateLimit: 1000, Events: events})

		var count atomic.Int32
		for i := 0; i < 10; i++ {
			require.NoError(t, q.Enqueue(funcJob{name: "count", fn: func(context.Context) error {
				count.Add(1)
				return nil
			}}))
		}

		q.Start(context.Background())
		require.NoError(t, q.Stop(context.Background()))

		assert.Equal(t, int32(10), count.Load())
		assert.Len(t, events, 10)
	})

	t.Run("Failures And Panics Are Reported", func(t *testing.T) {
		events := make(chan Event, 2)
		q := NewQueue(QueueOpts{Workers: 1, RateLimit: 1000, Events: events})
		q.Start(context.Background())

		require.NoError(t, q.Enqueue(funcJob{name: "fail", fn: func(context.Context) error { return errors.New("nope") }}))
		require.NoError(t, q.Enqueue(funcJob{name: "panic", fn: func(context.Context) error { panic("boom") }}))
		require.NoError(t, q.Stop(context.Background()))

		first, second := <-events, <-events
		assert.EqualError(t, first.Err, "nope")
		assert.ErrorContains(t, second.Err, "boom")
	})

	t.Run("Closed After Stop", func(t *testing.T) {
		q := NewQueue(QueueOpts{})
		q.Start(context.Background())
		require.NoError(t, q.Stop(context.Background()))

		err := q.Enqueue(funcJob{name: "late", fn: func(context.Context) error { return nil }})
		assert.ErrorIs(t, err, shared.ErrQueueClosed)
	})

	t.Run("Enqueue Does Not Block", func(t *testing.T) {
		release := make(chan struct{})
		q := NewQueue(QueueOpts{Workers: 1, RateLimit: 1000})
		q.Start(context.Background())

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = q.Enqueue(funcJob{name: "wait", fn: func(context.Context) error {
					<-release
					return nil
				}})
			}
		}()

		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("enqueue blocked while workers were busy")
		}

		close(release)
		require.NoError(t, q.Stop(context.Background()))
	})

	t.Run("Stop Deadline", func(t *testing.T) {
		q := NewQueue(QueueOpts{Workers: 1, RateLimit: 1000})
		q.Start(context.Background())
		require.NoError(t, q.Enqueue(funcJob{name: "slow", fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)
	})
}

type recordingDeliverer struct {
	mu  sync.Mutex
	got []*mailer.Message
}

func (d *recordingDeliverer) Deliver(_ context.Context, msg *mailer.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, msg)
	return nil
}

func TestMailJob(t *testing.T) {
	d := &recordingDeliverer{}
	job := NewMailJob(d, &mailer.Message{To: "bo@example.com", Subject: "hi"})

	assert.Equal(t, "mail:bo@example.com", job.Name())
	require.NoError(t, job.Perform(context.Background()))
	assert.Len(t, d.got, 1)

	assert.NoError(t, (&MailJob{}).Perform(context.Background()), "missing deliverer is a no-op")
}

type purgeFunc func(time.Time) (int64, error)

func (f purgeFunc) Purge(now time.Time) (int64, error) { return f(now) }

type sliceQueue struct {
	mu   sync.Mutex
	jobs []Job
}

func (q *sliceQueue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *sliceQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func TestPurgeSessionsJob(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Purges Before Now", func(t *testing.T) {
		var got time.Time
		job := NewPurgeSessionsJob(purgeFunc(func(at time.Time) (int64, error) {
			got = at
			return 3, nil
		}), th.QuietLogger())
		job.Now = func() time.Time { return now }

		require.NoError(t, job.Perform(context.Background()))
		assert.Equal(t, now, got)
		assert.Equal(t, "purge_sessions", job.Name())
	})

	t.Run("Wraps Errors", func(t *testing.T) {
		job := NewPurgeSessionsJob(purgeFunc(func(time.Time) (int64, error) {
			return 0, errors.New("locked")
		}), nil)

		assert.ErrorContains(t, job.Perform(context.Background()), "failed to purge sessions: locked")
	})

	t.Run("Schedules Immediately And On Tick", func(t *testing.T) {
		q := &sliceQueue{}
		job := NewPurgeSessionsJob(purgeFunc(func(time.Time) (int64, error) { return 0, nil }), nil)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			SchedulePurge(ctx, q, job, 10*time.Millisecond)
			close(done)
		}()

		assert.Eventually(t, func() bool { return q.len() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()
		<-done
	})
}

func TestQueueRateLimitedJob(t *testing.T) {
	events := make(chan Event, 1)
	q := NewQueue(QueueOpts{Workers: 1, RateLimit: 1000, Events: events})
	q.Start(context.Background())

	limited := &services.APIError{StatusCode: 429, Message: "slow down"}
	require.NoError(t, q.Enqueue(funcJob{name: "limited", fn: func(context.Context) error { return limited }}))
	require.NoError(t, q.Stop(context.Background()))

	e := <-events
	assert.True(t, services.IsRateLimited(e.Err))
}
