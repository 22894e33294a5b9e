package assignment

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

type AnswerKind int

// Answer kinds
const (
	AnswerNone AnswerKind = iota
	AnswerText
	AnswerChoice
	AnswerMatch
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerText:
		return "text"
	case AnswerChoice:
		return "choice"
	case AnswerMatch:
		return "match"
	default:
		return "none"
	}
}

// Answer is a student's answer to one question:
// free text, the text of the chosen option, or the right item text picked for each left item index.
type Answer struct {
	Kind    AnswerKind
	Text    string         // AnswerText, AnswerChoice
	Matches map[int]string // AnswerMatch: left index -> right text
}

func TextAnswer(text string) Answer {
	return Answer{Kind: AnswerText, Text: text}
}

func ChoiceAnswer(option string) Answer {
	return Answer{Kind: AnswerChoice, Text: option}
}

func MatchAnswer(matches map[int]string) Answer {
	if matches == nil {
		matches = make(map[int]string)
	}
	return Answer{Kind: AnswerMatch, Matches: matches}
}

func (a Answer) IsZero() bool {
	switch a.Kind {
	case AnswerMatch:
		return len(a.Matches) == 0
	case AnswerText, AnswerChoice:
		return a.Text == ""
	default:
		return true
	}
}

// Encode returns the storage form of the answer: the raw text, or JSON text for matching answers.
func (a Answer) Encode() string {
	if a.Kind != AnswerMatch {
		return a.Text
	}
	data, _ := json.Marshal(stringKeyed(a.Matches)) // a map[string]string always marshals
	return string(data)
}

// DecodeAnswer parses the storage form of an answer to a question of the given type.
// Unknown types are sniffed: text that parses as a JSON object is a matching answer.
// Malformed matching JSON falls back to the raw text; decoding never fails.
func DecodeAnswer(qt QuestionType, raw string) Answer {
	switch qt {
	case QuestionText:
		return TextAnswer(raw)
	case QuestionMultipleChoice:
		return ChoiceAnswer(raw)
	}
	if matches, err := parseMatches([]byte(raw)); err == nil {
		return MatchAnswer(matches)
	}
	return TextAnswer(raw)
}

// As re-tags the answer for a question of the given type, eg. JSON text received for a matching question.
func (a Answer) As(qt QuestionType) Answer {
	switch {
	case a.Kind == AnswerNone:
		return a
	case qt == QuestionMatching && a.Kind != AnswerMatch:
		return DecodeAnswer(QuestionMatching, a.Text)
	case qt == QuestionMultipleChoice && a.Kind != AnswerChoice:
		if a.Kind == AnswerMatch {
			return ChoiceAnswer(a.Encode())
		}
		return ChoiceAnswer(a.Text)
	case qt == QuestionText && a.Kind != AnswerText:
		if a.Kind == AnswerMatch {
			return TextAnswer(a.Encode())
		}
		return TextAnswer(a.Text)
	}
	return a
}

// MarshalJSON writes the network form: a string, or an object keyed by left index for matching answers.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerMatch:
		return json.Marshal(stringKeyed(a.Matches))
	case AnswerNone:
		return []byte(`""`), nil
	default:
		return json.Marshal(a.Text)
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = Answer{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	case data[0] == '{':
		matches, err := parseMatches(data)
		if err != nil {
			return err
		}
		*a = MatchAnswer(matches)
	default: // numbers & booleans
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*a = TextAnswer(cast.ToString(v))
	}
	return nil
}

func parseMatches(data []byte) (map[int]string, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("not a matching answer")
	}
	matches := make(map[int]string, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrapf(err, "matching answer key %q", k)
		}
		matches[idx] = cast.ToString(v)
	}
	return matches, nil
}

func stringKeyed(m map[int]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

// Answers holds a submission's answers keyed by question index.
type Answers map[int]Answer

// Indices returns the answered question indices in ascending order.
func (as Answers) Indices() []int {
	idxs := make([]int, 0, len(as))
	for i := range as {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

// Normalize re-tags every answer after the type of the question it answers.
func (as Answers) Normalize(questions []Question) Answers {
	out := make(Answers, len(as))
	for i, a := range as {
		if i >= 0 && i < len(questions) {
			a = a.As(questions[i].Type)
		}
		out[i] = a
	}
	return out
}

// Clone returns a deep copy.
func (as Answers) Clone() Answers {
	out := make(Answers, len(as))
	for i, a := range as {
		if a.Kind == AnswerMatch {
			m := make(map[int]string, len(a.Matches))
			for k, v := range a.Matches {
				m[k] = v
			}
			a.Matches = m
		}
		out[i] = a
	}
	return out
}

// UnmarshalJSON accepts an object keyed by question index or an array of answers.
func (as *Answers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	out := make(Answers)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*as = nil
		return nil
	case data[0] == '[':
		var list []Answer
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		for i, a := range list {
			if a.Kind != AnswerNone {
				out[i] = a
			}
		}
	default:
		var m map[string]Answer
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		for k, a := range m {
			idx, err := strconv.Atoi(k)
			if err != nil {
				continue // not a question index
			}
			out[idx] = a
		}
	}
	*as = out
	return nil
}
