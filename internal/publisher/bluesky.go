package publisher

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

// Bluesky publishes social posts to a Bluesky PDS over the AT Protocol.
// The XRPC session is created lazily on first use and cached; a failed
// publish drops the cached session so the next attempt re-authenticates.
type Bluesky struct {
	host        string
	identifier  string
	appPassword string
	httpClient  *http.Client

	mu     sync.Mutex
	client *xrpc.Client
}

// Config holds Bluesky connection settings.
type Config struct {
	Host        string
	Identifier  string
	AppPassword string
	Timeout     time.Duration
}

// Status reports the publisher's configuration and session state.
type Status struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Account    string `json:"account,omitempty"`
}

// New creates a new Bluesky publisher.
func New(cfg *Config) *Bluesky {
	host := cfg.Host
	if host == "" {
		host = "https://bsky.social"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Bluesky{
		host:        host,
		identifier:  cfg.Identifier,
		appPassword: cfg.AppPassword,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured reports whether publishing credentials are present.
func (b *Bluesky) IsConfigured() bool {
	return b.identifier != "" && b.appPassword != ""
}

// Publish sends one post and returns the platform-assigned record URI.
// The adapter makes exactly one attempt; retry policy belongs to the caller.
func (b *Bluesky) Publish(ctx context.Context, text string) (string, error) {
	client, err := b.session(ctx)
	if err != nil {
		return "", err
	}

	post := &appbsky.FeedPost{
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := comatproto.RepoCreateRecord(ctx, client, &comatproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       client.Auth.Did,
		Record:     &lexutil.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		// Session may have expired; force a fresh login next time
		b.dropSession()
		return "", fmt.Errorf("failed to create post record: %w", err)
	}

	return resp.Uri, nil
}

// Status reports configuration and connectivity. Connectivity is checked by
// establishing (or reusing) a session.
func (b *Bluesky) Status(ctx context.Context) Status {
	st := Status{Configured: b.IsConfigured()}
	if !st.Configured {
		return st
	}

	client, err := b.session(ctx)
	if err != nil {
		return st
	}

	st.Connected = true
	st.Account = client.Auth.Handle
	return st
}

// session returns the cached authenticated XRPC client, creating it if
// needed.
func (b *Bluesky) session(ctx context.Context) (*xrpc.Client, error) {
	if !b.IsConfigured() {
		return nil, fmt.Errorf("bluesky credentials not configured")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	client := &xrpc.Client{
		Host:   b.host,
		Client: b.httpClient,
	}

	session, err := comatproto.ServerCreateSession(ctx, client, &comatproto.ServerCreateSession_Input{
		Identifier: b.identifier,
		Password:   b.appPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session with PDS %s: %w", b.host, err)
	}

	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	b.client = client
	return client, nil
}

func (b *Bluesky) dropSession() {
	b.mu.Lock()
	b.client = nil
	b.mu.Unlock()
}
