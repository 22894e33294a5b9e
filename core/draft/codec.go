package draft

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/assignment"
)

// stored is the storage form of a Draft: answers are kept as text, matching answers as JSON text.
type stored struct {
	Answers       map[string]json.RawMessage `json:"answers,omitempty"`
	UploadedFiles []UploadedFile             `json:"uploadedFiles,omitempty"`
}

func encode(d Draft) (string, error) {
	s := stored{UploadedFiles: d.UploadedFiles}
	if len(d.Answers) > 0 {
		s.Answers = make(map[string]json.RawMessage, len(d.Answers))
		for _, i := range d.Answers.Indices() {
			raw, err := json.Marshal(d.Answers[i].Encode())
			if err != nil {
				return "", errors.Wrapf(err, "encoding answer %d", i)
			}
			s.Answers[strconv.Itoa(i)] = raw
		}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "encoding draft")
	}
	return string(data), nil
}

// decode parses a stored draft. Answers are decoded after the type of the question they answer;
// entries that cannot be read are skipped and reported in the returned error, the rest of the draft is kept.
func decode(raw string, questions []assignment.Question) (Draft, error) {
	var s stored
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Draft{}, errors.Wrap(err, "decoding draft")
	}

	d := Draft{Answers: make(assignment.Answers, len(s.Answers)), UploadedFiles: s.UploadedFiles}
	var bad []string
	for k, msg := range s.Answers {
		idx, err := strconv.Atoi(k)
		if err != nil {
			bad = append(bad, k)
			continue
		}
		var qt assignment.QuestionType
		if idx >= 0 && idx < len(questions) {
			qt = questions[idx].Type
		}

		msg = bytes.TrimSpace(msg)
		if len(msg) > 0 && msg[0] == '"' {
			var text string
			if err := json.Unmarshal(msg, &text); err != nil {
				bad = append(bad, k)
				continue
			}
			if ans := assignment.DecodeAnswer(qt, text); !ans.IsZero() {
				d.Answers[idx] = ans
			}
			continue
		}

		// answers saved as objects or numbers
		var ans assignment.Answer
		if err := json.Unmarshal(msg, &ans); err != nil {
			bad = append(bad, k)
			continue
		}
		if ans = ans.As(qt); !ans.IsZero() {
			d.Answers[idx] = ans
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return d, errors.Errorf("skipped unreadable draft answers %v", bad)
	}
	return d, nil
}
