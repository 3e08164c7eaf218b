// Package gservice wraps the Gmail REST API calls the mailer issues
// with a browser-deposited bearer token.
package gservice

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const gmailUserID = "me"

// ErrUnauthorized indicates the provider rejected the bearer token.
// Callers clear their token store and ask the user to re-authorize.
var ErrUnauthorized = errors.New("provider rejected token")

// Option customizes the client.
type Option func(*GMail)

// WithEndpoint overrides the Gmail API base URL, used by tests.
func WithEndpoint(url string) Option {
	return func(m *GMail) { m.endpoint = url }
}

// GMail is the provider client. A fresh service is constructed per call
// so every request carries the token current at call time.
type GMail struct {
	endpoint string
}

// NewGMail creates the client.
func NewGMail(opts ...Option) *GMail {
	m := &GMail{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Probe validates the token against the provider profile endpoint.
func (m *GMail) Probe(ctx context.Context, token string) error {
	svc, err := m.newSvc(ctx, token)
	if err != nil {
		return err
	}

	if _, err := svc.Users.GetProfile(gmailUserID).Context(ctx).Do(); err != nil {
		return classify(err)
	}

	return nil
}

// Send uploads a base64url raw message and returns the provider id.
func (m *GMail) Send(ctx context.Context, token, raw string) (string, error) {
	svc, err := m.newSvc(ctx, token)
	if err != nil {
		return "", err
	}

	msg, err := svc.Users.Messages.Send(gmailUserID, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}

	return msg.Id, nil
}

// Draft stores a base64url raw message as a provider draft and returns
// the draft id.
func (m *GMail) Draft(ctx context.Context, token, raw string) (string, error) {
	svc, err := m.newSvc(ctx, token)
	if err != nil {
		return "", err
	}

	draft, err := svc.Users.Drafts.Create(gmailUserID, &gmail.Draft{
		Message: &gmail.Message{Raw: raw},
	}).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}

	return draft.Id, nil
}

func (m *GMail) newSvc(ctx context.Context, token string) (*gmail.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	clt := oauth2.NewClient(ctx, src)

	opts := []option.ClientOption{option.WithHTTPClient(clt)}
	if m.endpoint != "" {
		opts = append(opts, option.WithEndpoint(m.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}

// classify maps provider failures: 401 becomes ErrUnauthorized, other
// HTTP failures keep the provider's error text, everything else is a
// network error.
func classify(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == 401 {
			return fmt.Errorf("%w: %s", ErrUnauthorized, gErr.Message)
		}
		msg := gErr.Message
		if msg == "" {
			msg = gErr.Error()
		}
		return fmt.Errorf("provider error: HTTP %d: %s", gErr.Code, msg)
	}

	return fmt.Errorf("Network error: %w", err)
}
