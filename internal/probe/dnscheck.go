package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNS classes reported by Diagnose.
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServfail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

type DNSStatus struct {
	Domain        string   `json:"domain"`
	HasAOrAAAA    bool     `json:"has_a_or_aaaa"`
	IPs           []net.IP `json:"ips,omitempty"`
	CNAME         string   `json:"cname,omitempty"`
	HasNS         bool     `json:"has_ns"`
	Nameservers   []string `json:"nameservers,omitempty"`
	Class         string   `json:"class"`
	ResolverError string   `json:"resolver_error,omitempty"`
}

var dnsTimeout = 3 * time.Second

// Diagnose explains why a host could not be reached. It is meant for
// failed probes only and never changes a probe outcome.
func Diagnose(ctx context.Context, r *net.Resolver, domain string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(domain)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, ipErr := r.LookupIP(ctx, "ip", s.Domain)
	if ipErr != nil {
		s.ResolverError = ipErr.Error()
	}
	s.IPs = ips
	s.HasAOrAAAA = len(ips) > 0

	if cname, err := r.LookupCNAME(ctx, s.Domain); err == nil && !strings.EqualFold(cname, s.Domain+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}
	if ns, err := r.LookupNS(ctx, s.Domain); err == nil {
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		s.HasNS = len(s.Nameservers) > 0
	}

	s.Class = dnsClass(s.HasAOrAAAA, s.HasNS, ipErr)
	return s
}

// dnsClass maps what the lookups found to a class. A zone with name
// servers but no address records is NO_A_RECORD even when the resolver
// reported not-found for the address lookup.
func dnsClass(hasAddr, hasNS bool, ipErr error) string {
	if hasAddr {
		return DNSResolves
	}
	if hasNS {
		return DNSNoARecord
	}
	var de *net.DNSError
	switch {
	case ipErr == nil:
		return DNSNXDomain
	case errors.As(ipErr, &de) && de.IsNotFound:
		return DNSNXDomain
	default:
		return DNSServfail
	}
}

// ShouldDiagnose reports whether a DNS lookup can add anything to r.
func ShouldDiagnose(r Result) bool {
	return r.Outcome == OutcomeFailed && r.Host != "" && errors.Is(r.Err, ErrConnection)
}
