package quiz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/user"
)

const keyPrefix = "quiz_start"

var (
	nowFunc      = time.Now // mockable
	tickInterval = time.Second

	ErrNotTimed = errors.New("assignment is not a timed quiz")
)

// Key returns the store key of a user's quiz start time.
func Key(assignmentID, userID string) string {
	return core.ScopedKey(keyPrefix, assignmentID, userID)
}

type Status int

// Statuses
const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusExpired // the start time was dropped; the quiz must be restarted explicitly
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusExpired:
		return "expired"
	default:
		return "not-started"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// State is a snapshot of a quiz clock.
type State struct {
	Status    Status        `json:"status"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
	Limit     time.Duration `json:"-"`
	Remaining time.Duration `json:"-"`
}

// RemainingSeconds is the countdown shown to the student; never negative.
func (st State) RemainingSeconds() int {
	if st.Remaining <= 0 {
		return 0
	}
	return int(st.Remaining / time.Second)
}

func (st State) MarshalJSON() ([]byte, error) {
	type state State
	return json.Marshal(struct {
		state
		LimitSeconds     int `json:"limitSeconds"`
		RemainingSeconds int `json:"remainingSeconds"`
	}{state(st), int(st.Limit / time.Second), st.RemainingSeconds()})
}

// Remaining returns the time limit minus the elapsed time, counting whole elapsed seconds.
func Remaining(start, now time.Time, limit time.Duration) time.Duration {
	elapsed := now.Sub(start).Truncate(time.Second)
	return limit - elapsed
}

// Clock is the soft time box of timed quizzes. The start time is persisted so that the countdown survives reloads;
// expiry only stops the countdown, it never submits.
// Store failures are logged: the countdown then only lives as long as the caller's State.
type Clock struct {
	store  core.KeyValueStore
	logger core.Logger
}

func NewClock(store core.KeyValueStore, logger core.Logger) *Clock {
	return &Clock{store: store, logger: logger}
}

func limitOf(a assignment.Assignment) (time.Duration, error) {
	if !a.IsTimedQuiz || a.QuizTimeLimit <= 0 {
		return 0, ErrNotTimed
	}
	return a.QuizTimeLimit.Duration(), nil
}

// Start records the start time of the quiz, unless it is already running.
func (c *Clock) Start(ctx context.Context, usr user.User, a assignment.Assignment) (State, error) {
	if _, err := limitOf(a); err != nil {
		return State{}, err
	}
	if st := c.Resume(ctx, usr, a); st.Status == StatusRunning {
		return st, nil
	}

	now := nowFunc().UTC()
	key := Key(a.ID, usr.ID)
	if err := c.store.Set(ctx, key, now.Format(time.RFC3339Nano)); err != nil {
		c.logger.Warn("quiz.Start", errors.Wrap(err, key), map[string]interface{}{"key": key}, usr)
	}
	return c.state(a, now, now), nil
}

// Resume restores the clock of a quiz from its stored start time.
// A clock whose time is up is dropped from the store and reported as StatusExpired.
func (c *Clock) Resume(ctx context.Context, usr user.User, a assignment.Assignment) State {
	limit, err := limitOf(a)
	if err != nil {
		return State{}
	}
	key := Key(a.ID, usr.ID)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, core.ErrKeyNotFound) {
			c.logger.Warn("quiz.Resume", errors.Wrap(err, key), map[string]interface{}{"key": key}, usr)
		}
		return State{Limit: limit}
	}

	start, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		c.logger.Warn("quiz.Resume", errors.Wrapf(err, "%s: bad start time %q", key, raw), map[string]interface{}{"key": key}, usr)
		c.Stop(ctx, usr, a.ID)
		return State{Limit: limit}
	}

	st := c.state(a, start, nowFunc())
	if st.Status == StatusExpired {
		c.Stop(ctx, usr, a.ID)
	}
	return st
}

// Stop drops the stored start time, once the quiz is submitted or expired.
func (c *Clock) Stop(ctx context.Context, usr user.User, assignmentID string) {
	key := Key(assignmentID, usr.ID)
	if err := c.store.Clear(ctx, key); err != nil {
		c.logger.Warn("quiz.Stop", errors.Wrap(err, key), map[string]interface{}{"key": key}, usr)
	}
}

func (c *Clock) state(a assignment.Assignment, start, now time.Time) State {
	st := State{
		Status:    StatusRunning,
		StartedAt: &start,
		Limit:     a.QuizTimeLimit.Duration(),
		Remaining: Remaining(start, now, a.QuizTimeLimit.Duration()),
	}
	if st.Remaining <= 0 {
		st.Status = StatusExpired
		st.Remaining = 0
	}
	return st
}

// Run ticks every second with the updated state until the time is up or ctx is done.
// The last tick of an expired clock has StatusExpired and no time remaining.
func (c *Clock) Run(ctx context.Context, st State, tick func(State)) {
	if st.Status != StatusRunning || st.StartedAt == nil {
		return
	}
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Remaining = st.Limit - nowFunc().Sub(*st.StartedAt).Truncate(time.Second)
			if st.Remaining <= 0 {
				st.Status = StatusExpired
				st.Remaining = 0
				tick(st)
				return
			}
			tick(st)
		}
	}
}
