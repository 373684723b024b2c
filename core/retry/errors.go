package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"google.golang.org/api/googleapi"
)

// Kind classifies a failure for the retry decision.
type Kind string

const (
	// KindAuth covers bad or missing credentials.
	KindAuth Kind = "auth"
	// KindNetwork covers DNS, connect, reset, timeout and transient 5xx failures.
	KindNetwork Kind = "network"
	// KindRateLimited covers 429 responses and quota errors.
	KindRateLimited Kind = "rate_limited"
	// KindData covers malformed JSON and unexpected response shapes.
	KindData Kind = "data"
	// KindUnknown is the default.
	KindUnknown Kind = "unknown"
)

// Retryable reports whether failures of this kind are worth another attempt.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindRateLimited
}

// Classifier maps an error to its Kind.
type Classifier func(err error) Kind

var (
	// ErrMissingCredentials is returned when a required token or key is not configured.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrMalformedResponse marks a response that could not be decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is a non-success HTTP response from a remote service.
type StatusError struct {
	// Op names the failed operation, e.g. "micropub.create".
	Op string
	// StatusCode is the HTTP status.
	StatusCode int
	// Body is a truncated copy of the response body.
	Body string
	// RetryAfter is the parsed Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// NewStatusError builds a StatusError from a response whose body has already been read.
func NewStatusError(op string, resp *http.Response, body []byte) *StatusError {
	const maxBody = 512
	text := strings.TrimSpace(string(body))
	if len(text) > maxBody {
		text = text[:maxBody]
	}
	return &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       text,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// ParseRetryAfter reads a Retry-After header given as delta-seconds or an HTTP date.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Classify is the default Classifier.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	if errors.Is(err, ErrMissingCredentials) {
		return KindAuth
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if kind := classifyStatus(apiErr.Code); kind != KindUnknown {
			return kind
		}
		return classifyMessage(apiErr.Message)
	}

	if errors.Is(err, ErrMalformedResponse) {
		return KindData
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindData
	}

	if isNetworkError(err) {
		return KindNetwork
	}

	return classifyMessage(err.Error())
}

// RetryAfter extracts a server-provided retry hint from err, zero when there is none.
func RetryAfter(err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Header != nil {
		return ParseRetryAfter(apiErr.Header.Get("Retry-After"), time.Now())
	}
	return 0
}

func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusInternalServerError,
		code == http.StatusBadGateway,
		code == http.StatusServiceUnavailable,
		code == http.StatusGatewayTimeout:
		return KindNetwork
	default:
		return KindUnknown
	}
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// net.Error is an interface, so walk the chain by hand.
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ne, ok := e.(net.Error); ok && ne.Timeout() {
			return true
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

var (
	rateLimitKeywords = []string{"quota", "rate limit", "ratelimit", "too many requests"}
	authKeywords      = []string{"unauthorized", "unauthenticated", "invalid_grant", "invalid credentials", "permission denied"}
	networkKeywords   = []string{"connection reset", "connection refused", "timeout", "timed out", "no such host", "socket hang up", "broken pipe"}
	dataKeywords      = []string{"invalid character", "unexpected end of json", "cannot unmarshal"}
)

func classifyMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, rateLimitKeywords):
		return KindRateLimited
	case containsAny(msg, authKeywords):
		return KindAuth
	case containsAny(msg, networkKeywords):
		return KindNetwork
	case containsAny(msg, dataKeywords):
		return KindData
	default:
		return KindUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
