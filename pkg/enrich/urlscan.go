package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/Alterya/Globe/services"
)

const (
	urlscanSearchAPI = "https://urlscan.io/api/v1/search/"

	// urlscanDelay spaces out consecutive searches so batch enrichment
	// stays under the public rate limits.
	urlscanDelay = 2 * time.Second
)

var urlscanLogger = logrus.New()

func init() {
	urlscanLogger.SetFormatter(&logrus.JSONFormatter{})
	urlscanLogger.SetOutput(os.Stderr)
}

// URLScanClient searches urlscan.io for hosting overlap between domains.
type URLScanClient struct {
	http   *http.Client
	apiKey string
	delay  time.Duration
}

// NewURLScanClient builds a client using the shared HTTP client and the
// URLSCAN_API_KEY environment variable. The key is optional; unauthenticated
// searches get a smaller quota.
func NewURLScanClient() *URLScanClient {
	return &URLScanClient{
		http:   services.DefaultHttpClient(),
		apiKey: os.Getenv("URLSCAN_API_KEY"),
		delay:  urlscanDelay,
	}
}

func (c *URLScanClient) search(ctx context.Context, query string, size int) (gjson.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("size", fmt.Sprintf("%d", size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlscanSearchAPI+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "build urlscan request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "urlscan search")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return gjson.Result{}, errors.New("urlscan rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, errors.Errorf("urlscan search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "read urlscan response")
	}
	return gjson.GetBytes(body, "results"), nil
}

// DomainIP resolves the most recently scanned IP for a domain. An empty
// string means urlscan has no scan with a resolved IP for it.
func (c *URLScanClient) DomainIP(ctx context.Context, domain string) (string, error) {
	results, err := c.search(ctx, "domain:"+domain, 1)
	if err != nil {
		return "", err
	}

	ip := results.Get("0.page.ip").String()
	if ip == "" {
		urlscanLogger.WithField("domain", domain).Debug("no resolved IP in urlscan results")
	}
	return ip, nil
}

// SameIPDomains finds other domains sharing the target's hosting IP.
// The target itself is excluded and results are sorted.
func (c *URLScanClient) SameIPDomains(ctx context.Context, domain string, limit int) ([]string, error) {
	ip, err := c.DomainIP(ctx, domain)
	if err != nil {
		return nil, err
	}
	if ip == "" {
		return nil, nil
	}

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	query := fmt.Sprintf("page.ip:%q AND NOT page.domain:%q", ip, domain)
	results, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	found := mapset.NewThreadUnsafeSet[string]()
	results.ForEach(func(_, result gjson.Result) bool {
		d := strings.ToLower(result.Get("page.domain").String())
		if d != "" && d != strings.ToLower(domain) {
			found.Add(d)
		}
		return true
	})

	out := found.ToSlice()
	sort.Strings(out)

	urlscanLogger.WithFields(logrus.Fields{
		"domain": domain,
		"ip":     ip,
		"found":  len(out),
	}).Info("same-IP domain search complete")
	return out, nil
}

// SameIPBatch runs SameIPDomains for each domain, spacing requests out.
// Per-domain failures are logged and skipped so one flaky lookup does not
// sink the whole batch.
func (c *URLScanClient) SameIPBatch(ctx context.Context, domains []string, limitPerDomain int) map[string][]string {
	out := make(map[string][]string, len(domains))
	for i, domain := range domains {
		if i > 0 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return out
			}
		}

		matches, err := c.SameIPDomains(ctx, domain, limitPerDomain)
		if err != nil {
			urlscanLogger.WithError(err).WithField("domain", domain).Warn("same-IP lookup failed")
			continue
		}
		out[domain] = matches
	}
	return out
}
