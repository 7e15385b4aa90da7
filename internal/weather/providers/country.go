package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	// DefaultCountryURL resolves an IP address to an ISO2 country code.
	DefaultCountryURL = "https://api.country.is"
	// FallbackCountry is answered whenever the lookup fails.
	FallbackCountry = "CH"

	countryCacheSize = 1 << 20 // bytes, freecache minimum is 512KiB
	countryCacheTTL  = int((1 * time.Hour) / time.Second)
)

// CountryFeed looks up the country of an IP address.
type CountryFeed struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   *freecache.Cache
	logger  zerolog.Logger
}

func NewCountryFeed(client *http.Client, baseURL string, logger zerolog.Logger) *CountryFeed {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultCountryURL
	}
	logger = logger.With().Str("feed", "country").Logger()
	return &CountryFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: client,
			// The caller waits on this, one retry at most.
			Backoff: BackoffConfig{MaxRetries: 1, InitialInterval: 200 * time.Millisecond, MaxInterval: time.Second},
		},
		circuit: newBreaker("country", logger),
		cache:   freecache.NewCache(countryCacheSize),
		logger:  logger,
	}
}

type countryReply struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
}

// Country returns the ISO2 code for ip, FallbackCountry when it cannot be
// determined. Successful lookups are memoized for an hour.
func (f *CountryFeed) Country(ctx context.Context, ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return FallbackCountry
	}
	if cached, err := f.cache.Get([]byte(ip)); err == nil {
		return string(cached)
	}

	var reply countryReply
	if err := getJSON(ctx, f.httpCfg, f.circuit, f.baseURL+"/"+url.PathEscape(ip), &reply); err != nil {
		f.logger.Warn().Err(err).Str("ip", ip).Msg("country lookup failed")
		return FallbackCountry
	}
	code := strings.ToUpper(strings.TrimSpace(reply.Country))
	if code == "" {
		return FallbackCountry
	}
	if err := f.cache.Set([]byte(ip), []byte(code), countryCacheTTL); err != nil {
		f.logger.Debug().Err(err).Str("ip", ip).Msg("country not memoized")
	}
	return code
}
