package service

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
)

// ProbeDialTimeout bounds the TCP connect attempt.
const ProbeDialTimeout = 5 * time.Second

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dialer opens a network connection.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ProbeService checks DNS resolution and TCP reachability of a routed provider.
type ProbeService struct {
	router   ports.ModelRouter
	resolver Resolver
	dialer   Dialer
	log      zerolog.Logger
}

func NewProbeService(router ports.ModelRouter, log zerolog.Logger) *ProbeService {
	return &ProbeService{
		router:   router,
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{Timeout: ProbeDialTimeout},
		log:      log,
	}
}

// Probe never returns an error; failures are reported in the result. An
// empty modelKey probes the default route.
func (s *ProbeService) Probe(ctx context.Context, modelKey string) domain.ProbeResult {
	if modelKey == "" {
		modelKey = domain.DefaultModelKey
	}
	route := s.router.Resolve(modelKey)
	res := domain.ProbeResult{ModelKey: modelKey, BaseURL: route.BaseURL}

	u, err := url.Parse(route.BaseURL)
	if err != nil || u.Hostname() == "" {
		if err == nil {
			err = fmt.Errorf("base url %q has no host", route.BaseURL)
		}
		res.Error = err.Error()
		return res
	}

	res.Host = u.Hostname()
	res.Port = portOf(u)

	ips, err := s.resolver.LookupHost(ctx, res.Host)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.DNSResolved = true
	res.IPs = ips

	dialCtx, cancel := context.WithTimeout(ctx, ProbeDialTimeout)
	defer cancel()

	conn, err := s.dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(res.Host, strconv.Itoa(res.Port)))
	if err != nil {
		res.TCPError = err.Error()
		s.log.Debug().Err(err).Str("model_key", modelKey).Str("host", res.Host).Msg("probe: tcp connect failed")
		return res
	}
	_ = conn.Close()
	res.TCPConnect = true
	return res
}

func portOf(u *url.URL) int {
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	if strings.EqualFold(u.Scheme, "https") {
		return 443
	}
	return 80
}
