// WHOIS client grounded on the reference service's whois_client_test.go
// behavioral contract (its implementation file was never retrieved): a
// per-TLD server table with an IANA fallback, and a line-oriented response
// parser pulling registrar/creation-date/name-server/status fields.
package reputation

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// WhoisInfo is the parsed subset of a WHOIS response this pipeline needs.
type WhoisInfo struct {
	Registrar   string
	CreatedDate time.Time
	NameServers []string
	Status      []string
}

// WhoisClient performs a best-effort raw WHOIS query over TCP port 43.
type WhoisClient struct {
	servers map[string]string
	dialer  net.Dialer
}

// NewWhoisClient builds a client seeded with the most common per-TLD WHOIS
// servers, falling back to IANA's referral server for anything else.
func NewWhoisClient() *WhoisClient {
	return &WhoisClient{
		servers: map[string]string{
			"com": "whois.verisign-grs.com",
			"net": "whois.verisign-grs.com",
			"org": "whois.pir.org",
			"io":  "whois.nic.io",
			"co":  "whois.nic.co",
		},
	}
}

func (wc *WhoisClient) getWhoisServer(ctx context.Context, domain string) (string, error) {
	parts := strings.Split(domain, ".")
	tld := parts[len(parts)-1]
	if server, ok := wc.servers[tld]; ok {
		return server, nil
	}
	return "whois.iana.org", nil
}

// Lookup queries the appropriate WHOIS server for domain and returns the
// parsed result. Honors ctx's deadline; any failure is returned as an
// error for the caller to treat as a Transient, non-fatal condition.
func (wc *WhoisClient) Lookup(ctx context.Context, domain string) (*WhoisInfo, error) {
	server, err := wc.getWhoisServer(ctx, domain)
	if err != nil {
		return nil, err
	}

	conn, err := wc.dialer.DialContext(ctx, "tcp", net.JoinHostPort(server, "43"))
	if err != nil {
		return nil, fmt.Errorf("dial whois server %s: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(domain + "\r\n")); err != nil {
		return nil, fmt.Errorf("write whois query: %w", err)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}

	info := &WhoisInfo{}
	wc.parseWhoisResponse(sb.String(), info)
	return info, nil
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"02-Jan-2006",
}

func (wc *WhoisClient) parseWhoisResponse(raw string, info *WhoisInfo) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch {
		case strings.Contains(key, "registrar name") || key == "registrar":
			if info.Registrar == "" {
				info.Registrar = value
			}
		case strings.Contains(key, "creation date") || key == "created":
			if t, ok := parseWhoisDate(value); ok {
				info.CreatedDate = t
			}
		case strings.Contains(key, "name server"):
			info.NameServers = append(info.NameServers, value)
		case strings.Contains(key, "domain status") || strings.Contains(key, "status"):
			info.Status = append(info.Status, value)
		}
	}
}

func parseWhoisDate(value string) (time.Time, bool) {
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
