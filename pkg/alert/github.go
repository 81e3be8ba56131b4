package alert

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v60/github"
)

// IssueSink opens a GitHub issue per alert.
type IssueSink struct {
	client *gh.Client
	owner  string
	repo   string
	labels []string
}

// IssueOption configures an IssueSink.
type IssueOption func(*IssueSink) error

// WithLabels applies labels to every issue opened.
func WithLabels(labels ...string) IssueOption {
	return func(s *IssueSink) error {
		s.labels = append(s.labels, labels...)
		return nil
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test endpoint.
func WithBaseURL(raw string) IssueOption {
	return func(s *IssueSink) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("github base url: %w", err)
		}
		s.client.BaseURL = u
		return nil
	}
}

// NewIssueSink creates a sink for repo ("owner/name") authenticated with
// token.
func NewIssueSink(token, repo string, opts ...IssueOption) (*IssueSink, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Transport: &tokenTransport{token: token},
	}
	s := &IssueSink{
		client: gh.NewClient(httpClient),
		owner:  owner,
		repo:   name,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *IssueSink) Name() string { return "github:" + s.owner + "/" + s.repo }

func (s *IssueSink) Send(ctx context.Context, a Alert) error {
	body := "```\n" + a.Body + "\n```\n"
	if a.Run != "" {
		body = fmt.Sprintf("Run: `%s`\n\n", a.Run) + body
	}
	req := &gh.IssueRequest{
		Title: gh.String(a.Title),
		Body:  gh.String(body),
	}
	if len(s.labels) > 0 {
		labels := append([]string(nil), s.labels...)
		req.Labels = &labels
	}

	issue, _, err := s.client.Issues.Create(ctx, s.owner, s.repo, req)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	if issue.GetNumber() == 0 {
		return fmt.Errorf("create issue: response carried no issue number")
	}
	return nil
}

// tokenTransport adds Bearer token auth to HTTP requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format %q (expected 'owner/name')", repo)
	}
	return parts[0], parts[1], nil
}
