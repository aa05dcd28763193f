// Package service implements the relay's per-request pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"cors-relay-go/internal/body"
	"cors-relay-go/internal/client"
	"cors-relay-go/internal/composite"
	"cors-relay-go/internal/config"
	"cors-relay-go/internal/domain"
	"cors-relay-go/internal/headers"
	"cors-relay-go/internal/model"
)

// bodiedMethods carry a request body that is transcoded for the upstream.
var bodiedMethods = []string{
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// wellKnownTargets are answered with a redirect instead of being relayed.
var wellKnownTargets = []string{"favicon.ico", "robots.txt"}

// Doer sends an outbound request. *client.UpstreamClient implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*client.UpstreamClient)(nil)

// ProxyService turns an inbound relay request into an upstream call.
// It holds no per-request state and is safe for concurrent use.
type ProxyService struct {
	client      Doer
	matcher     *domain.Matcher
	redirectURL string
	logger      *slog.Logger
}

// NewProxyService creates a ProxyService. The allow-list is captured once and
// never changes afterwards.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) *ProxyService {
	return newProxyService(c, cfg, logger)
}

func newProxyService(c Doer, cfg *config.Config, logger *slog.Logger) *ProxyService {
	redirect := cfg.Gateway.RedirectURL
	if redirect == "" {
		redirect = config.DefaultRedirectURL
	}
	return &ProxyService{
		client:      c,
		matcher:     domain.NewMatcher(cfg.Gateway.AllowedDomains),
		redirectURL: redirect,
		logger:      logger.With("component", "proxy_service"),
	}
}

// Matcher returns the service's domain matcher.
func (s *ProxyService) Matcher() *domain.Matcher {
	return s.matcher
}

// Forward relays req to the target encoded in its URL and returns the
// upstream response. The caller is responsible for closing the response body.
//
// Errors are one of *MalformedInputError, *BodyDecodeError,
// *DomainRejectedError, *UpstreamFetchError or *WellKnownRedirect.
func (s *ProxyService) Forward(ctx context.Context, req *model.InboundRequest) (*model.ProxyResponse, error) {
	s.logger.Debug("got raw request URL", "url", req.RawURL)

	parsed, err := composite.Parse(req.RawURL)
	if err != nil {
		return nil, &MalformedInputError{Input: req.RawURL, Err: err}
	}
	s.logger.Debug("parsed request",
		"url_body", parsed.URLBody,
		"real_url", parsed.TargetURL,
		"headers", parsed.Overrides.Map(),
	)

	target := parsed.TargetURL
	if len(target) < 3 || !strings.Contains(target, ".") {
		return nil, &MalformedInputError{Input: target, Err: errors.New("invalid URL input")}
	}
	if slices.Contains(wellKnownTargets, target) {
		return nil, &WellKnownRedirect{Target: target, Location: s.redirectURL}
	}

	target = normalizeScheme(target)
	targetURL, err := url.Parse(target)
	if err != nil {
		return nil, &MalformedInputError{Input: target, Err: err}
	}
	// A target with an empty authority only yields a hostname through the
	// scheme-less retry, so the two must agree.
	hostname := domain.ExtractHostname(target)
	if hostname == "" || hostname != targetURL.Hostname() {
		return nil, &MalformedInputError{Input: target, Err: errors.New("missing host")}
	}
	if !s.matcher.IsAllowed(hostname) {
		s.logger.Info("target domain rejected", "hostname", hostname)
		return nil, &DomainRejectedError{Hostname: hostname}
	}
	escapeQuerySpaces(targetURL)

	outbound, err := s.buildRequest(ctx, req, parsed.Overrides, targetURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(outbound)
	if err != nil {
		return nil, &UpstreamFetchError{URL: targetURL.Redacted(), Err: err}
	}

	passthrough := headers.Passthrough(resp.Header)
	passthrough.Each(func(k, v string) {
		s.logger.Debug("forwarding header", "name", k, "value", v)
	})

	return &model.ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Passthrough: passthrough,
		Body:        resp.Body,
	}, nil
}

// buildRequest resolves the outbound method, headers and body.
func (s *ProxyService) buildRequest(ctx context.Context, req *model.InboundRequest, overrides *headers.Ordered, target *url.URL) (*http.Request, error) {
	method := req.Method
	if m, ok := overrides.Get(headers.MethodOverrideKey); ok {
		method = strings.ToUpper(m)
	}

	bodied := slices.Contains(bodiedMethods, req.Method)
	hdr := headers.Outbound(req.Header, overrides, bodied)

	// An explicit _body wins over content type dispatch, which then never runs.
	var b *body.Body
	if v, ok := overrides.Get(headers.BodyOverrideKey); ok {
		b = body.Override(v)
	} else if bodied {
		ct := req.Header.Get("Content-Type")
		encoded, err := body.Encode(ct, req.Body)
		if err != nil {
			if errors.Is(err, body.ErrDecode) {
				return nil, &BodyDecodeError{ContentType: ct, Err: err}
			}
			return nil, fmt.Errorf("read request body: %w", err)
		}
		b = encoded
	}

	var rdr io.Reader
	if b != nil {
		rdr = b.Reader()
		s.logger.Debug("outbound body", "kind", b.Kind.String(), "bytes", b.Len(), "overridden", b.Overridden)
	}

	// A *bytes.Reader body lets net/http set Content-Length and GetBody.
	outbound, err := http.NewRequestWithContext(ctx, method, target.String(), rdr)
	if err != nil {
		return nil, &MalformedInputError{Input: method + " " + target.Redacted(), Err: err}
	}
	outbound.Header = hdr.Header()

	return outbound, nil
}

// normalizeScheme prefixes "http://" unless target already names an http(s)
// scheme.
func normalizeScheme(target string) string {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return target
	}
	return "http://" + target
}

// escapeQuerySpaces re-escapes spaces left in the query by percent-decoding
// the composite path, so the request line stays valid.
func escapeQuerySpaces(u *url.URL) {
	u.RawQuery = strings.ReplaceAll(u.RawQuery, " ", "%20")
}
