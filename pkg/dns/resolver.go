package dns

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/theory-cloud/certtheory/pkg/naming"
)

// ZoneResolverConfig names the three suffixes a service's domains may fall
// under and the environment zone id the request already carries.
type ZoneResolverConfig struct {
	EnvDomain       string
	EnvHostedZoneID string
	AppDomain       string
	RootDomain      string
}

// ZoneResolver maps each domain to the hosted zone that owns it, so
// conflict checks and record submission share one source of truth.
//
// Domains under the environment domain use the zone id the request carries;
// app-domain and root-domain aliases are resolved by name lookup, memoized
// for the invocation.
type ZoneResolver struct {
	api    API
	config ZoneResolverConfig

	mu    sync.Mutex
	cache map[string]string
}

// ZoneResolver creates a resolver sharing this Service's Route53 surface.
func (s *Service) ZoneResolver(config ZoneResolverConfig) *ZoneResolver {
	return &ZoneResolver{
		api:    s.api,
		config: config,
		cache:  make(map[string]string),
	}
}

// ResolveZones maps every domain to its hosted zone id, sharing one
// memoized resolver across the batch.
func (s *Service) ResolveZones(ctx context.Context, config ZoneResolverConfig, domains []string) (map[string]string, error) {
	resolver := s.ZoneResolver(config)
	zones := make(map[string]string, len(domains))
	for _, domain := range domains {
		d := naming.NormalizeDomain(domain)
		if _, ok := zones[d]; ok {
			continue
		}
		id, err := resolver.Resolve(ctx, d)
		if err != nil {
			return nil, err
		}
		zones[d] = id
	}
	return zones, nil
}

// Resolve returns the hosted zone id owning domain.
func (r *ZoneResolver) Resolve(ctx context.Context, domain string) (string, error) {
	d := naming.NormalizeDomain(domain)

	envDomain := naming.NormalizeDomain(r.config.EnvDomain)
	if d == envDomain || strings.HasSuffix(d, "."+envDomain) {
		return r.config.EnvHostedZoneID, nil
	}

	appDomain := naming.NormalizeDomain(r.config.AppDomain)
	if d == appDomain || strings.HasSuffix(d, "."+appDomain) {
		return r.lookup(ctx, d, appDomain)
	}

	rootDomain := naming.NormalizeDomain(r.config.RootDomain)
	if d == rootDomain || strings.HasSuffix(d, "."+rootDomain) {
		return r.lookup(ctx, d, rootDomain)
	}

	return "", &ZoneResolutionError{Domain: d}
}

func (r *ZoneResolver) lookup(ctx context.Context, domain, zoneDomain string) (string, error) {
	r.mu.Lock()
	if id, ok := r.cache[zoneDomain]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	out, err := r.api.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName:  aws.String(zoneDomain),
		MaxItems: aws.Int32(1),
	})
	if err != nil {
		return "", &ZoneResolutionError{Domain: domain, Err: err}
	}
	if len(out.HostedZones) == 0 || naming.NormalizeDomain(aws.ToString(out.HostedZones[0].Name)) != zoneDomain {
		return "", &ZoneResolutionError{Domain: domain}
	}

	id := strings.TrimPrefix(aws.ToString(out.HostedZones[0].Id), "/hostedzone/")

	r.mu.Lock()
	r.cache[zoneDomain] = id
	r.mu.Unlock()
	return id, nil
}
