package testutil

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/storage/database"
)

// Users
var (
	Student  = user.User{ID: "stu1", Name: "Amani", Email: "amani@test.test", Role: user.RoleStudent}
	Student2 = user.User{ID: "stu2", Name: "Baraka", Email: "baraka@test.test", Role: user.RoleStudent}
	Teacher  = user.User{ID: "tea1", Name: "Mwalimu", Email: "mwalimu@test.test", Role: user.RoleTeacher}
	Admin    = user.User{ID: "adm1", Name: "Admin", Role: user.RoleAdmin}
)

// QuizAssignment returns an assignment with one question of each type:
// 0: multiple-choice (2 pts, "B" is correct), 1: matching (3 pts), 2: text (5 pts).
func QuizAssignment(id string) assignment.Assignment {
	return assignment.Assignment{
		ID:            id,
		Title:         "Quiz " + id,
		IsGradedQuiz:  true,
		IsTimedQuiz:   true,
		QuizTimeLimit: 1,
		Questions: []assignment.Question{
			{
				ID:      "q1",
				Type:    assignment.QuestionMultipleChoice,
				Text:    "Pick B",
				Points:  2,
				Options: []assignment.Option{{Text: "A"}, {Text: "B", IsCorrect: true}, {Text: "C"}},
			},
			{
				ID:     "q2",
				Type:   assignment.QuestionMatching,
				Text:   "Match the sounds",
				Points: 3,
				LeftItems: []assignment.MatchItem{
					{ID: "1", Text: "cat"}, {ID: "2", Text: "dog"}, {ID: "3", Text: "cow"},
				},
				RightItems: []assignment.MatchItem{
					{ID: "2", Text: "woof"}, {ID: "3", Text: "moo"}, {ID: "1", Text: "meow"},
				},
			},
			{ID: "q3", Type: assignment.QuestionText, Text: "Explain", Points: 5},
		},
	}
}

// LogEntry is a line logged through a Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger that records what is logged.
type Logger struct {
	mutex   sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Count returns the number of entries logged at the given level.
func (l *Logger) Count(level string) int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	var n int
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// ErrStore is returned by FailingStore.
var ErrStore = errors.New("store unavailable")

// FailingStore is a core.KeyValueStore that always fails, like a full or corrupted browser storage.
type FailingStore struct{}

func (FailingStore) Get(context.Context, string) (string, error) { return "", ErrStore }
func (FailingStore) Set(context.Context, string, string) error   { return ErrStore }
func (FailingStore) Clear(context.Context, string) error         { return ErrStore }

// PrepareDB opens & migrates the TEST database. Tests are skipped when it is unreachable.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("ENV") == "" {
		_ = os.Setenv("ENV", "TEST")
	}
	conf := core.NewConfig()
	if conf.Env != "TEST" {
		t.Fatalf("PrepareDB(): refusing to use the %s database", conf.Env)
	}

	db, err := sql.Open(conf.Database.Engine, database.URL(conf))
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		t.Skipf("test database unreachable: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() {
		if _, err := db.Exec("TRUNCATE kv_entry"); err != nil {
			t.Errorf("PrepareDB(): cleaning up: %v", err)
		}
		_ = db.Close()
	})
	return db
}
