package service

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

type stubResolver struct {
	ips []string
	err error
}

func (r stubResolver) LookupHost(context.Context, string) ([]string, error) {
	return r.ips, r.err
}

type stubDialer struct {
	err     error
	address string
}

func (d *stubDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	d.address = address
	if d.err != nil {
		return nil, d.err
	}
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

func newTestProbe(t *testing.T, routes []domain.Route, res Resolver, dialer Dialer) *ProbeService {
	t.Helper()
	router, err := NewStaticModelRouter(routes)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	p := NewProbeService(router, zerolog.Nop())
	p.resolver = res
	p.dialer = dialer
	return p
}

func TestProbeService_DefaultKeyHTTPS(t *testing.T) {
	dialer := &stubDialer{}
	p := newTestProbe(t, testRoutes(), stubResolver{ips: []string{"47.0.0.1"}}, dialer)

	res := p.Probe(context.Background(), "")
	if res.ModelKey != domain.DefaultModelKey {
		t.Fatalf("expected default model key, got %q", res.ModelKey)
	}
	if res.Host != "dashscope.aliyuncs.com" || res.Port != 443 {
		t.Fatalf("unexpected host/port: %s:%d", res.Host, res.Port)
	}
	if !res.DNSResolved || !res.TCPConnect || res.Failed() {
		t.Fatalf("expected success, got %+v", res)
	}
	if dialer.address != "dashscope.aliyuncs.com:443" {
		t.Fatalf("dialed %q", dialer.address)
	}
}

func TestProbeService_ExplicitPortAndHTTP(t *testing.T) {
	routes := testRoutes()
	routes[0].BaseURL = "http://10.0.0.5/v1"
	routes[2].BaseURL = "http://10.0.0.6:8443/v1"
	p := newTestProbe(t, routes, stubResolver{ips: []string{"10.0.0.5"}}, &stubDialer{})

	if res := p.Probe(context.Background(), domain.ModelQwenInternal); res.Port != 80 {
		t.Fatalf("expected port 80, got %d", res.Port)
	}
	if res := p.Probe(context.Background(), domain.ModelDeepSeek); res.Port != 8443 {
		t.Fatalf("expected port 8443, got %d", res.Port)
	}
}

func TestProbeService_DNSFailure(t *testing.T) {
	dialer := &stubDialer{}
	p := newTestProbe(t, testRoutes(), stubResolver{err: errors.New("no such host")}, dialer)

	res := p.Probe(context.Background(), domain.ModelQwenPublic)
	if res.DNSResolved || !res.Failed() {
		t.Fatalf("expected DNS failure, got %+v", res)
	}
	if dialer.address != "" {
		t.Fatalf("dial must not happen after DNS failure")
	}
}

func TestProbeService_TCPFailureIsNotFatal(t *testing.T) {
	p := newTestProbe(t, testRoutes(), stubResolver{ips: []string{"1.2.3.4"}}, &stubDialer{err: errors.New("i/o timeout")})

	res := p.Probe(context.Background(), domain.ModelQwenPublic)
	if !res.DNSResolved || res.TCPConnect || res.TCPError == "" || res.Failed() {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProbeService_BadBaseURL(t *testing.T) {
	routes := testRoutes()
	routes[2].BaseURL = ""
	p := newTestProbe(t, routes, stubResolver{}, &stubDialer{})

	res := p.Probe(context.Background(), domain.ModelDeepSeek)
	if !res.Failed() || res.DNSResolved {
		t.Fatalf("expected failure for empty base url, got %+v", res)
	}
}
