package draft

import (
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
)

const keyPrefix = "assignment_draft"

// Key returns the store key of a user's draft for an assignment.
func Key(assignmentID, userID string) string {
	return core.ScopedKey(keyPrefix, assignmentID, userID)
}

type (
	// Draft is a student's unsubmitted work on an assignment.
	Draft struct {
		Answers       assignment.Answers `json:"answers"`
		UploadedFiles []UploadedFile     `json:"uploadedFiles"`
	}

	UploadedFile struct {
		ID         string    `json:"id"`
		Name       string    `json:"name" validate:"required,notblank"`
		URL        string    `json:"url"`
		Size       int64     `json:"size,omitempty"`
		UploadedAt time.Time `json:"uploadedAt"`
	}

	// Patch is a partial update of a Draft.
	// Answers are merged per question (a zero Answer removes the question's answer);
	// a non-nil UploadedFiles replaces the stored list.
	Patch struct {
		Answers       assignment.Answers `json:"answers"`
		UploadedFiles []UploadedFile     `json:"uploadedFiles" validate:"omitempty,dive"`
	}
)

func NewUploadedFile(name, url string, size int64) UploadedFile {
	return UploadedFile{
		ID:         uuid.NewString(),
		Name:       core.CleanString(name),
		URL:        url,
		Size:       size,
		UploadedAt: nowFunc().UTC(),
	}
}

// IsEmpty reports whether there is nothing worth restoring.
func (d Draft) IsEmpty() bool {
	return len(d.Answers) == 0 && len(d.UploadedFiles) == 0
}

// Files returns the uploaded files as submission files.
func (d Draft) Files() []assignment.File {
	files := make([]assignment.File, 0, len(d.UploadedFiles))
	for _, f := range d.UploadedFiles {
		files = append(files, assignment.File{Name: f.Name, URL: f.URL})
	}
	return files
}

func (p Patch) IsEmpty() bool {
	return len(p.Answers) == 0 && p.UploadedFiles == nil
}

// apply merges the patch into the draft.
func (d Draft) apply(p Patch) Draft {
	out := Draft{Answers: d.Answers.Clone(), UploadedFiles: d.UploadedFiles}
	for i, ans := range p.Answers {
		if ans.IsZero() {
			delete(out.Answers, i)
			continue
		}
		out.Answers[i] = ans
	}
	if p.UploadedFiles != nil {
		out.UploadedFiles = append([]UploadedFile(nil), p.UploadedFiles...)
	}
	return out
}
