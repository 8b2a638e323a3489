package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"keyrelay/internal/domain"
	"keyrelay/internal/wire"
)

// DefaultTimeout bounds a single request when the caller's context does not.
const DefaultTimeout = 10 * time.Second

// StatusError is a non-2xx answer from the relay. It unwraps to the domain
// sentinel matching the status so callers can use errors.Is.
type StatusError struct {
	Method  string
	URL     string
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("relay %s %s: %d %s", e.Method, e.URL, e.Code, msg)
}

func (e *StatusError) Unwrap() error { return e.kind }

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type registerRequest struct {
	RegistrationID domain.RegistrationID        `json:"registration_id"`
	IdentityKey    domain.PublicKey             `json:"identity_key"`
	SignedPreKey   domain.SignedPreKeyRecord    `json:"signed_pre_key"`
	PreKeys        []domain.OneTimePreKeyRecord `json:"pre_keys"`
}

type uploadRequest struct {
	PreKeys []domain.OneTimePreKeyRecord `json:"pre_keys"`
}

type countResponse struct {
	Count int `json:"count"`
}

type devicesResponse struct {
	User    domain.UserID     `json:"user"`
	Devices []domain.DeviceID `json:"devices"`
}

// HTTP talks to a relay's /v1/keys API.
type HTTP struct {
	client *resty.Client
}

// Option configures an HTTP client.
type Option func(*resty.Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries retries requests that failed before reaching the relay.
// Responses, including 5xx, are never retried since a bundle fetch that
// reached the relay may already have consumed a pre-key.
func WithRetries(n int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(200 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool { return err != nil })
	}
}

// NewHTTP returns a client for the relay at base, e.g. http://localhost:8080.
func NewHTTP(base string, opts ...Option) *HTTP {
	cl := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "keyrelay/1.0")
	for _, opt := range opts {
		opt(cl)
	}
	return &HTTP{client: cl}
}

// Client exposes the underlying resty client, mostly for tests.
func (c *HTTP) Client() *resty.Client { return c.client }

func devicePath(addr domain.Address) string {
	return "/v1/keys/" + url.PathEscape(string(addr.User)) + "/" + addr.Device.String()
}

func (c *HTTP) request(ctx context.Context) *resty.Request {
	return c.client.R().SetContext(ctx).SetError(&apiError{})
}

// RegisterDevice publishes reg, replacing any earlier registration.
func (c *HTTP) RegisterDevice(ctx context.Context, reg domain.DeviceRegistration) error {
	body := registerRequest{
		RegistrationID: reg.RegistrationID,
		IdentityKey:    reg.IdentityKey,
		SignedPreKey:   reg.SignedPreKey,
		PreKeys:        reg.PreKeys,
	}
	resp, err := c.request(ctx).SetBody(body).Put(devicePath(reg.Address))
	return check(resp, err)
}

// Deregister removes every key the relay holds for addr.
func (c *HTTP) Deregister(ctx context.Context, addr domain.Address) error {
	resp, err := c.request(ctx).Delete(devicePath(addr))
	return check(resp, err)
}

// UploadPreKeys adds keys to addr's pool and returns the new pool size.
func (c *HTTP) UploadPreKeys(ctx context.Context, addr domain.Address, keys []domain.OneTimePreKeyRecord) (int, error) {
	var out countResponse
	resp, err := c.request(ctx).
		SetBody(uploadRequest{PreKeys: keys}).
		SetResult(&out).
		Post(devicePath(addr) + "/prekeys")
	if err := check(resp, err); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// RemovePreKey withdraws one one-time pre-key.
func (c *HTTP) RemovePreKey(ctx context.Context, addr domain.Address, id domain.PreKeyID) error {
	resp, err := c.request(ctx).Delete(fmt.Sprintf("%s/prekeys/%d", devicePath(addr), id))
	return check(resp, err)
}

// RotateSignedPreKey replaces addr's signed pre-key.
func (c *HTTP) RotateSignedPreKey(ctx context.Context, addr domain.Address, spk domain.SignedPreKeyRecord) error {
	resp, err := c.request(ctx).SetBody(spk).Put(devicePath(addr) + "/signed")
	return check(resp, err)
}

// PreKeyCount returns how many one-time pre-keys addr has left.
func (c *HTTP) PreKeyCount(ctx context.Context, addr domain.Address) (int, error) {
	var out countResponse
	resp, err := c.request(ctx).SetResult(&out).Get(devicePath(addr) + "/prekeys/count")
	if err := check(resp, err); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// FetchPreKeyBundle fetches, and thereby consumes, a bundle for addr. The
// bundle travels in the binary encoding of package wire.
func (c *HTTP) FetchPreKeyBundle(ctx context.Context, addr domain.Address) (domain.PreKeyBundle, error) {
	resp, err := c.request(ctx).
		SetHeader("Accept", wire.ContentType).
		Get(devicePath(addr) + "/bundle")
	if err := check(resp, err); err != nil {
		return domain.PreKeyBundle{}, err
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, wire.ContentType) {
		return domain.PreKeyBundle{}, fmt.Errorf("relay: bundle for %s: unexpected content type %q", addr, ct)
	}
	b, err := wire.UnmarshalBundle(resp.Body())
	if err != nil {
		return domain.PreKeyBundle{}, fmt.Errorf("relay: bundle for %s: %w", addr, err)
	}
	return b, nil
}

// ListDevices lists user's registered devices.
func (c *HTTP) ListDevices(ctx context.Context, user domain.UserID) ([]domain.DeviceID, error) {
	var out devicesResponse
	resp, err := c.request(ctx).SetResult(&out).Get("/v1/keys/" + url.PathEscape(string(user)))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// check turns a transport failure or an error status into an error.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	se := &StatusError{
		Method: resp.Request.Method,
		URL:    resp.Request.URL,
		Code:   resp.StatusCode(),
	}
	if body, ok := resp.Error().(*apiError); ok && body != nil {
		se.Message = body.Message
	}
	se.kind = kindFor(se.Code, se.Message)
	return se
}

func kindFor(code int, msg string) error {
	switch code {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrDuplicateID
	case http.StatusBadRequest:
		if strings.Contains(msg, domain.ErrInvalidSignature.Error()) {
			return domain.ErrInvalidSignature
		}
		return domain.ErrInvalidRequest
	case http.StatusServiceUnavailable:
		return domain.ErrConcurrentUpdate
	}
	return nil
}

// IsRetryable reports whether err is worth retrying later.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusServiceUnavailable || se.Code == http.StatusTooManyRequests
	}
	return false
}

var _ domain.RelayClient = (*HTTP)(nil)
