package draft

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	nowFunc = time.Now

	draftOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_draft_operations_total",
		Help: "Draft store operations by operation and result",
	}, []string{"operation", "result"})
)

// Service persists drafts on a best-effort basis: store failures are logged, never returned.
type Service struct {
	store  core.KeyValueStore
	logger core.Logger
}

func NewService(store core.KeyValueStore, logger core.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Save merges the patch into the user's stored draft and returns the merged draft.
// Nothing is written unless the user is a student who has not submitted the assignment yet;
// the returned bool reports whether the draft was written.
func (svc *Service) Save(
	ctx context.Context,
	usr user.User,
	assignmentID string,
	hasSubmission bool,
	patch Patch,
	questions []assignment.Question,
) (Draft, bool) {
	if !usr.IsStudent() || hasSubmission || core.CleanString(assignmentID) == "" {
		return Draft{}, false
	}

	key := Key(assignmentID, usr.ID)
	current := svc.read(ctx, usr, key, questions)
	merged := current.apply(Patch{
		Answers:       patch.Answers.Normalize(questions),
		UploadedFiles: patch.UploadedFiles,
	})

	data, err := encode(merged)
	if err == nil {
		err = svc.store.Set(ctx, key, data)
	}
	if err != nil {
		draftOps.WithLabelValues("save", "error").Inc()
		svc.logger.Warn("draft.Save", errors.Wrap(err, key), map[string]interface{}{"key": key}, usr)
		return merged, false
	}
	draftOps.WithLabelValues("save", "ok").Inc()
	return merged, true
}

// Load returns the user's stored draft, or an empty one.
// Unreadable stored data is logged and whatever could be read is returned.
func (svc *Service) Load(ctx context.Context, usr user.User, assignmentID string, questions []assignment.Question) Draft {
	if usr.IsZero() || core.CleanString(assignmentID) == "" {
		return Draft{}
	}
	return svc.read(ctx, usr, Key(assignmentID, usr.ID), questions)
}

func (svc *Service) read(ctx context.Context, usr user.User, key string, questions []assignment.Question) Draft {
	raw, err := svc.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, core.ErrKeyNotFound) {
			draftOps.WithLabelValues("load", "error").Inc()
			svc.logger.Warn("draft.Load", errors.Wrap(err, key), map[string]interface{}{"key": key}, usr)
		}
		return Draft{}
	}

	d, err := decode(raw, questions)
	if err != nil {
		draftOps.WithLabelValues("load", "corrupt").Inc()
		svc.logger.Warn("draft.Load", errors.Wrap(err, key), map[string]interface{}{"key": key}, usr)
	} else {
		draftOps.WithLabelValues("load", "ok").Inc()
	}
	if d.Answers == nil {
		d.Answers = make(assignment.Answers)
	}
	return d
}

// Clear removes the user's draft, after a successful submission or once a submission is found.
func (svc *Service) Clear(ctx context.Context, usr user.User, assignmentID string) {
	if usr.IsZero() || core.CleanString(assignmentID) == "" {
		return
	}
	key := Key(assignmentID, usr.ID)
	if err := svc.store.Clear(ctx, key); err != nil {
		draftOps.WithLabelValues("clear", "error").Inc()
		svc.logger.Warn("draft.Clear", errors.Wrap(err, key), map[string]interface{}{"key": key}, usr)
		return
	}
	draftOps.WithLabelValues("clear", "ok").Inc()
}
