// Package attendify is the HTTP client for the Attendify attendance
// backend. All operations return typed responses and classify every
// transport failure into an ErrorKind; nothing above this package observes
// a raw network error. Only Authenticate writes to the credential store.
package attendify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/attendify/kiosk/internal/credstore"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 10 * time.Second

// Client talks to one Attendify backend instance.
type Client struct {
	baseURL   string
	parsedURL *url.URL
	http      *http.Client
	store     credstore.Store
}

// New creates a client for the backend at rawURL. The store supplies the
// bearer token for authenticated calls and receives the token issued by
// Authenticate.
func New(rawURL string, store credstore.Store) (*Client, error) {
	return NewWithTimeout(rawURL, store, DefaultTimeout)
}

// NewWithTimeout creates a client with a custom per-call deadline.
func NewWithTimeout(rawURL string, store credstore.Store, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid Attendify URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:   parsed.String(),
		parsedURL: parsed,
		http:      &http.Client{Timeout: timeout},
		store:     store,
	}, nil
}

// resolveURL builds a full URL from the base URL and the given path segments.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// token reads the bearer token from the credential store. A read failure is
// treated as no token; the request goes out unauthenticated and the backend
// answers accordingly.
func (c *Client) token() string {
	if c.store == nil {
		return ""
	}
	tok, err := c.store.Token()
	if err != nil {
		return ""
	}
	return tok
}

// Authenticate performs POST /api/login. On success (a token is present in
// the response) the token is persisted to the credential store before
// returning. A rejected login comes back as application data in the
// response's Error field, not as an error.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}
	resp, err := doPostJSON[LoginResponse](c, ctx, body, "api", "login")
	if err != nil {
		return nil, err
	}
	if resp.AccessToken != "" && c.store != nil {
		if err := c.store.SetToken(resp.AccessToken); err != nil {
			return nil, fmt.Errorf("could not persist token: %w", err)
		}
	}
	return resp, nil
}

// SubmitEnrollment performs POST /api/enroll.
func (c *Client) SubmitEnrollment(ctx context.Context, req EnrollmentRequest) (*EnrollmentResponse, error) {
	return doPostJSON[EnrollmentResponse](c, ctx, req, "api", "enroll")
}

// SubmitRecognition performs POST /api/recognize with the JPEG-encoded
// probe image.
func (c *Client) SubmitRecognition(ctx context.Context, imageBytes []byte) (*RecognitionResponse, error) {
	body := map[string]string{
		"facial_image_base64": base64.StdEncoding.EncodeToString(imageBytes),
	}
	return doPostJSON[RecognitionResponse](c, ctx, body, "api", "recognize")
}

// StudentReport performs GET /api/student/attendance.
func (c *Client) StudentReport(ctx context.Context) (*StudentReport, error) {
	return doGetJSON[StudentReport](c, ctx, "api", "student", "attendance")
}

// AdminReport performs GET /api/admin/reports.
func (c *Client) AdminReport(ctx context.Context) (*AdminReport, error) {
	return doGetJSON[AdminReport](c, ctx, "api", "admin", "reports")
}

// UpdateConsent performs POST /api/consent. Callers treat this as
// best-effort; the locally persisted consent flag is the source of truth
// for gating.
func (c *Client) UpdateConsent(ctx context.Context, consent bool) (*ConsentResponse, error) {
	body := map[string]bool{"consent": consent}
	return doPostJSON[ConsentResponse](c, ctx, body, "api", "consent")
}

// Health performs GET /health for reachability checks.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doGetJSON[HealthResponse](c, ctx, "health")
}
