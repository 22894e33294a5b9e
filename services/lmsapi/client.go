package lmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/gradebook"
	"github.com/trezcool/masomo-portal/core/user"
)

// TokenSource provides the bearer token of the signed in user, eg. a user.Session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type ctxKey int

const tokenKey ctxKey = iota

// WithToken returns a context carrying the bearer token to use, ahead of the client's TokenSource.
// The API forwards its caller's token this way.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Client consumes the LMS REST API. Missing response fields decode to their zero values.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient returns a traced client of the configured LMS. tokens may be nil.
func NewClient(conf *core.Config, tokens TokenSource) *Client {
	hc := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   conf.LMS.Timeout,
	}
	return NewClientWithHTTP(conf.LMS.BaseURL, hc, tokens)
}

func NewClientWithHTTP(baseURL string, hc *http.Client, tokens TokenSource) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, tokens: tokens}
}

func (c *Client) token(ctx context.Context) (string, error) {
	if token, ok := ctx.Value(tokenKey).(string); ok && token != "" {
		return token, nil
	}
	if c.tokens == nil {
		return "", ErrUnauthorized
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, user.ErrNotSignedIn) {
			return "", ErrUnauthorized
		}
		return "", errors.Wrap(err, "reading token")
	}
	return token, nil
}

// do sends an authenticated request and returns the response if its status is 2xx.
// The caller must close the response body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer func() { _ = resp.Body.Close() }()
	return nil, statusError(resp)
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: GenericErrorMessage}
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		apiErr.Message = strings.TrimSpace(payload.Message)
	}
	return apiErr
}

// call sends a request and decodes the JSON response into out (if not nil).
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", method, path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(data, out), "decoding %s %s", method, path)
}

func seg(id string) string {
	return url.PathEscape(id)
}

// GetAssignment calls GET /api/assignments/:id.
func (c *Client) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	var a assignment.Assignment
	err := c.call(ctx, http.MethodGet, "/api/assignments/"+seg(id), nil, &a)
	return a, err
}

// GetStudentSubmission calls GET /api/submissions/student/:assignmentId.
// It returns nil when the student has not submitted yet.
func (c *Client) GetStudentSubmission(ctx context.Context, assignmentID string) (*assignment.Submission, error) {
	var s assignment.Submission
	if err := c.call(ctx, http.MethodGet, "/api/submissions/student/"+seg(assignmentID), nil, &s); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !s.IsSubmitted() {
		return nil, nil
	}
	return &s, nil
}

// CreateSubmission calls POST /api/submissions.
func (c *Client) CreateSubmission(ctx context.Context, ns assignment.NewSubmission) (assignment.Submission, error) {
	var s assignment.Submission
	err := c.call(ctx, http.MethodPost, "/api/submissions", ns, &s)
	return s, err
}

// UpdateSubmission calls PUT /api/submissions/:id.
func (c *Client) UpdateSubmission(ctx context.Context, id string, upd assignment.SubmissionUpdate) (assignment.Submission, error) {
	var s assignment.Submission
	err := c.call(ctx, http.MethodPut, "/api/submissions/"+seg(id), upd, &s)
	return s, err
}

// ListSubmissions calls GET /api/submissions/assignment/:id.
func (c *Client) ListSubmissions(ctx context.Context, assignmentID string) ([]assignment.Submission, error) {
	var list listOf[assignment.Submission]
	err := c.call(ctx, http.MethodGet, "/api/submissions/assignment/"+seg(assignmentID), nil, &list)
	return list.items, err
}

// PublishAssignment calls PATCH /api/assignments/:id/publish.
func (c *Client) PublishAssignment(ctx context.Context, id string, published bool) (assignment.Assignment, error) {
	var a assignment.Assignment
	body := map[string]bool{"published": published}
	err := c.call(ctx, http.MethodPatch, "/api/assignments/"+seg(id)+"/publish", body, &a)
	return a, err
}

// GetModule calls GET /api/modules/view/:id. Modules are passed through as is.
func (c *Client) GetModule(ctx context.Context, id string) (json.RawMessage, error) {
	var m json.RawMessage
	err := c.call(ctx, http.MethodGet, "/api/modules/view/"+seg(id), nil, &m)
	return m, err
}

// CourseAverage calls GET /api/grades/course/:id/average.
func (c *Client) CourseAverage(ctx context.Context, courseID string) (gradebook.CourseAverage, error) {
	var avg gradebook.CourseAverage
	if err := c.call(ctx, http.MethodGet, "/api/grades/course/"+seg(courseID)+"/average", nil, &avg); err != nil {
		return gradebook.CourseAverage{}, err
	}
	if avg.CourseID == "" {
		avg.CourseID = courseID
	}
	return avg, nil
}

// StudentCourseGrades calls GET /api/grades/student/course/:id.
func (c *Client) StudentCourseGrades(ctx context.Context, courseID string) ([]gradebook.StudentGrade, error) {
	var list listOf[gradebook.StudentGrade]
	err := c.call(ctx, http.MethodGet, "/api/grades/student/course/"+seg(courseID), nil, &list)
	return list.items, err
}

// Download is a streamed file. Body must be closed.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 if unknown
	Filename      string
}

// DownloadSubmission calls GET /api/submissions/:id/download.
func (c *Client) DownloadSubmission(ctx context.Context, id string) (*Download, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/submissions/"+seg(id)+"/download", nil)
	if err != nil {
		return nil, err
	}
	dl := &Download{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Filename:      "submission-" + id,
	}
	if dl.ContentType == "" {
		dl.ContentType = "application/octet-stream"
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		dl.Filename = params["filename"]
	}
	return dl, nil
}
