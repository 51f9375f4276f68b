package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/verihub/verihub-cli/internal/auth"
	"github.com/verihub/verihub-cli/internal/cache"
	"github.com/verihub/verihub-cli/internal/model"
	"github.com/verihub/verihub-cli/internal/stream"
	"github.com/verihub/verihub-cli/internal/util"
)

const (
	streamPath = "/ai/stream-chat"
	verifyPath = "/ai/verify"
)

// Capability reports whether the environment supports incremental streamed
// reads. It is queried once per submission.
type Capability func() bool

// Gateway performs the actual requests against the verification service.
// It selects between the streaming and single-shot endpoints, constructs
// the multipart body, attaches the bearer credential, and classifies HTTP
// rejections. It is not a retryer: a failed attempt is reported once.
type Gateway struct {
	baseURL      string
	userAgent    string
	maxBodyBytes int64
	client       *http.Client // Timeout-bounded, for the single-shot path
	streamClient *http.Client // Unbounded; stream lifetime is context/ping governed
	creds        auth.TokenStore
	capability   Capability
	results      cache.Cache // Optional cache for single-shot responses
	cacheTTL     time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCapability overrides the streaming capability check.
func WithCapability(c Capability) Option {
	return func(g *Gateway) { g.capability = c }
}

// WithResultCache caches single-shot verify responses by submission digest.
func WithResultCache(c cache.Cache, ttl time.Duration) Option {
	return func(g *Gateway) {
		g.results = c
		g.cacheTTL = ttl
	}
}

// New creates a Gateway from service configuration. The underlying transport
// is configured with HTTP/2 keepalive pings so a silently stalled stream
// eventually surfaces as a read error instead of hanging forever.
func New(cfg model.ServiceConfig, creds auth.TokenStore, opts ...Option) (*Gateway, error) {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if http2Transport, err := http2.ConfigureTransports(transport); err == nil {
		http2Transport.ReadIdleTimeout = 30 * time.Second
		http2Transport.PingTimeout = 10 * time.Second
	}

	maxBody := cfg.MaxBodyMB
	if maxBody <= 0 {
		maxBody = 8
	}

	g := &Gateway{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:    cfg.UserAgent,
		maxBodyBytes: maxBody << 20,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
		creds:      creds,
		capability: func() bool { return cfg.Streaming },
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// SupportsStreaming queries the capability check.
func (g *Gateway) SupportsStreaming() bool {
	return g.capability()
}

// OpenStream opens the streaming endpoint and returns the response body.
// The caller owns the body; closing it aborts any pending read.
func (g *Gateway) OpenStream(ctx context.Context, sub stream.Submission) (io.ReadCloser, error) {
	body, contentType, err := buildMultipart(sub)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+streamPath, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	g.setHeaders(req, contentType)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.streamClient.Do(req)
	if err != nil {
		return nil, &stream.TransportError{Reason: fmt.Sprintf("connect: %v", err)}
	}

	if err := g.checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// Verify performs the single-shot call and returns the result body verbatim.
// Responses are served from the result cache when one is configured.
func (g *Gateway) Verify(ctx context.Context, sub stream.Submission) (json.RawMessage, error) {
	key, cacheable := g.cacheKey(sub)
	if cacheable {
		if cached, found := g.results.Get(key); found {
			log.Debug().Str("key", key).Msg("verify result served from cache")
			return cached, nil
		}
	}

	body, contentType, err := buildMultipart(sub)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+verifyPath, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	g.setHeaders(req, contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &stream.TransportError{Reason: fmt.Sprintf("connect: %v", err)}
	}
	defer resp.Body.Close()

	if err := g.checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBodyBytes))
	if err != nil {
		return nil, &stream.TransportError{Reason: fmt.Sprintf("read response: %v", err)}
	}

	if cacheable {
		if err := g.results.Set(key, data, g.cacheTTL); err != nil {
			log.Debug().Err(err).Msg("failed to cache verify result")
		}
	}

	return data, nil
}

func (g *Gateway) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Content-Type", contentType)
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	if token, ok := g.creds.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkStatus classifies HTTP rejections. A 401 clears the stored credential
// before reporting, so the caller's next attempt starts clean.
func (g *Gateway) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := g.creds.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear expired credential")
		}
		return &stream.AuthExpiredError{}
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &stream.TransportError{
		Status: resp.StatusCode,
		Reason: strings.TrimSpace(string(detail)),
	}
}

// cacheKey builds the result-cache key for a submission. File submissions
// are digested by content so a renamed copy still hits.
func (g *Gateway) cacheKey(sub stream.Submission) (string, bool) {
	if g.results == nil {
		return "", false
	}
	if sub.Text != "" {
		return cache.SubmissionKey("text", []byte(sub.Text)), true
	}
	if len(sub.Files) > 0 {
		data, err := os.ReadFile(sub.Files[0])
		if err != nil {
			return "", false
		}
		return cache.SubmissionKey("image", data), true
	}
	return "", false
}

// buildMultipart constructs the submission body. Contract: with files
// staged, only the first is sent — the service accepts exactly one file per
// submission and extra entries are truncated, not rejected.
func buildMultipart(sub stream.Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if len(sub.Files) > 0 {
		if len(sub.Files) > 1 {
			log.Debug().Int("staged", len(sub.Files)).Str("sent", sub.Files[0]).
				Msg("multiple files staged; sending the first only")
		}

		inputType := sub.InputType
		if inputType == "" {
			inputType = "image"
		}
		if err := w.WriteField("input_type", inputType); err != nil {
			return nil, "", fmt.Errorf("write input_type: %w", err)
		}

		path := sub.Files[0]
		f, err := os.Open(path)
		if err != nil {
			return nil, "", &stream.ValidationError{Reason: fmt.Sprintf("open file: %v", err)}
		}
		defer f.Close()

		part, err := w.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, "", fmt.Errorf("copy file: %w", err)
		}
	} else {
		inputType := sub.InputType
		if inputType == "" {
			inputType = "text"
		}
		if err := w.WriteField("input_type", inputType); err != nil {
			return nil, "", fmt.Errorf("write input_type: %w", err)
		}
		if err := w.WriteField("raw_input", sub.Text); err != nil {
			return nil, "", fmt.Errorf("write raw_input: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
