package certtheory

import (
	"github.com/aws/aws-lambda-go/cfn"

	"github.com/theory-cloud/certtheory/pkg/dns"
	"github.com/theory-cloud/certtheory/pkg/naming"
)

// RequestType is the lifecycle event kind.
type RequestType string

const (
	RequestCreate RequestType = "Create"
	RequestUpdate RequestType = "Update"
	RequestDelete RequestType = "Delete"
)

// Request is one parsed lifecycle invocation. Immutable once built;
// aliases are deduplicated and normalized, preserving insertion order so
// the physical resource id stays deterministic.
type Request struct {
	Type      RequestType
	RequestID string

	ServiceName string
	AppName     string
	EnvName     string
	DomainName  string

	Aliases    []string
	OldAliases []string

	LoadBalancerDNS          string
	LoadBalancerHostedZoneID string
	EnvHostedZoneID          string
}

// RequestFromEvent parses the custom-resource envelope into a Request.
// An unrecognized request type is preserved so the orchestrator can map it
// to its failure kind; malformed properties fail here.
func RequestFromEvent(event cfn.Event) (Request, error) {
	req := Request{
		Type:      RequestType(event.RequestType),
		RequestID: event.RequestID,
	}

	var err error
	if req.ServiceName, err = stringProperty(event.ResourceProperties, "ServiceName"); err != nil {
		return Request{}, err
	}
	if req.AppName, err = stringProperty(event.ResourceProperties, "AppName"); err != nil {
		return Request{}, err
	}
	if req.EnvName, err = stringProperty(event.ResourceProperties, "EnvName"); err != nil {
		return Request{}, err
	}
	if req.DomainName, err = stringProperty(event.ResourceProperties, "DomainName"); err != nil {
		return Request{}, err
	}
	if req.LoadBalancerDNS, err = stringProperty(event.ResourceProperties, "LoadBalancerDNS"); err != nil {
		return Request{}, err
	}
	if req.LoadBalancerHostedZoneID, err = stringProperty(event.ResourceProperties, "LoadBalancerHostedZoneID"); err != nil {
		return Request{}, err
	}
	if req.EnvHostedZoneID, err = stringProperty(event.ResourceProperties, "EnvHostedZoneId"); err != nil {
		return Request{}, err
	}

	aliases, err := stringSliceProperty(event.ResourceProperties, "Aliases")
	if err != nil {
		return Request{}, err
	}
	req.Aliases = naming.Dedupe(aliases)

	if req.Type == RequestUpdate && event.OldResourceProperties != nil {
		oldAliases, err := stringSliceProperty(event.OldResourceProperties, "Aliases")
		if err != nil {
			return Request{}, err
		}
		req.OldAliases = naming.Dedupe(oldAliases)
	}

	return req, nil
}

func stringProperty(props map[string]interface{}, key string) (string, error) {
	raw, ok := props[key]
	if !ok {
		return "", &InvalidPropertiesError{Property: key}
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", &InvalidPropertiesError{Property: key, Detail: "expected a non-empty string"}
	}
	return value, nil
}

func stringSliceProperty(props map[string]interface{}, key string) ([]string, error) {
	raw, ok := props[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, &InvalidPropertiesError{Property: key, Detail: "expected a list of strings"}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		value, ok := item.(string)
		if !ok {
			return nil, &InvalidPropertiesError{Property: key, Detail: "expected a list of strings"}
		}
		out = append(out, value)
	}
	return out, nil
}

// PhysicalResourceID derives the stable identifier for this resource.
func (r Request) PhysicalResourceID() string {
	return naming.PhysicalResourceID(r.ServiceName, r.Aliases)
}

// ServiceDomain is the canonical NLB domain the certificate is issued for.
func (r Request) ServiceDomain() string {
	return naming.ServiceDomain(r.ServiceName, r.EnvName, r.AppName, r.DomainName)
}

// Domains is the primary service domain plus all aliases, the full subject
// set of the certificate.
func (r Request) Domains() []string {
	return append([]string{r.ServiceDomain()}, r.Aliases...)
}

// ZoneResolverConfig names the hosted-zone suffixes this request's domains
// may fall under.
func (r Request) ZoneResolverConfig() dns.ZoneResolverConfig {
	return dns.ZoneResolverConfig{
		EnvDomain:       naming.EnvDomain(r.EnvName, r.AppName, r.DomainName),
		EnvHostedZoneID: r.EnvHostedZoneID,
		AppDomain:       naming.AppDomain(r.AppName, r.DomainName),
		RootDomain:      naming.NormalizeDomain(r.DomainName),
	}
}

// AddedAliases returns aliases present now but not before the update.
// Aliases already owned by this service are exempt from conflict checking.
func (r Request) AddedAliases() []string {
	return subtract(r.Aliases, r.OldAliases)
}

// RemovedAliases returns aliases present before the update but not now.
func (r Request) RemovedAliases() []string {
	return subtract(r.OldAliases, r.Aliases)
}

// AliasesUnchanged reports whether the alias set is identical to the old
// one, order-independent.
func (r Request) AliasesUnchanged() bool {
	return len(subtract(r.Aliases, r.OldAliases)) == 0 && len(subtract(r.OldAliases, r.Aliases)) == 0
}

func subtract(from, exclude []string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, item := range exclude {
		excluded[item] = struct{}{}
	}
	var out []string
	for _, item := range from {
		if _, ok := excluded[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}
