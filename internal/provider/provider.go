// Package provider declares the adapters the generation pipeline composes and
// the typed failure every adapter returns.
//
// Adapters never panic and never return empty success values: a call either
// yields its result or a *Failure describing which provider failed and how.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an upstream failure.
type Kind string

const (
	KindNetwork   Kind = "network"    // connection refused, DNS, reset
	KindTimeout   Kind = "timeout"    // per-call deadline exceeded
	KindAuth      Kind = "auth"       // 401/403
	KindRateLimit Kind = "rate_limit" // 429 after retries
	KindStatus    Kind = "status"     // any other non-success status
	KindMalformed Kind = "malformed"  // undecodable or empty payload
	KindCanceled  Kind = "canceled"   // caller canceled the run
)

// Failure is the error returned by every provider adapter.
type Failure struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

// Error formats the provider, kind and status when known.
func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", f.Provider, f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Provider, f.Kind, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind carried by err, or "" when err is not a
// provider failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// StatusFailure classifies a non-success HTTP status.
func StatusFailure(providerName string, status int, body string) *Failure {
	kind := KindStatus
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusTooManyRequests:
		kind = KindRateLimit
	}
	return &Failure{
		Provider:   providerName,
		Kind:       kind,
		StatusCode: status,
		Err:        fmt.Errorf("unexpected response: %s", body),
	}
}

// TransportFailure classifies an error returned before any response arrived.
func TransportFailure(providerName string, err error) *Failure {
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &Failure{Provider: providerName, Kind: kind, Err: err}
}

// MalformedFailure reports an unusable response payload.
func MalformedFailure(providerName string, err error) *Failure {
	return &Failure{Provider: providerName, Kind: KindMalformed, Err: err}
}

// TrendSource lists currently trending topics, most trending first.
type TrendSource interface {
	Topics(ctx context.Context, region string) ([]string, error)
}

// ScriptGenerator turns a topic into a narration script.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, topic string) (string, error)
}

// VideoRequest is the input to a video synthesis call.
type VideoRequest struct {
	Script      string
	Title       string
	Description string
}

// VideoJob is the provider's acknowledgement of a synthesis request.
type VideoJob struct {
	ID     string
	Status string
	Raw    json.RawMessage
}

// VideoState is a provider-neutral view of a synthesis job's progress.
type VideoState int

const (
	VideoUnknown VideoState = iota
	VideoInProgress
	VideoReady
	VideoFailed
)

// VideoStatus is the provider-reported state of a synthesis job. Status is
// the provider's own word for it; State is its normalized form.
type VideoStatus struct {
	ID          string
	Status      string
	State       VideoState
	DownloadURL string
	HostedURL   string
	Details     string
}

// VideoGenerator submits scripts for synthesis and reports job state.
type VideoGenerator interface {
	CreateVideo(ctx context.Context, req VideoRequest) (*VideoJob, error)
	GetVideo(ctx context.Context, id string) (*VideoStatus, error)
}
