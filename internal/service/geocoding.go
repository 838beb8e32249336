package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Geocoder resolves coordinates to a human-readable locality. Lookup
// accuracy is the provider's concern, not ours.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// nominatimGeocoder talks to a Nominatim-compatible reverse geocoding
// endpoint.
type nominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

func NewNominatimGeocoder(baseURL string) Geocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &nominatimGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (g *nominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	endpoint := fmt.Sprintf("%s/reverse?%s", g.baseURL, url.Values{
		"lat":    {fmt.Sprintf("%f", lat)},
		"lon":    {fmt.Sprintf("%f", lng)},
		"format": {"json"},
		"zoom":   {"14"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "chatilo-server")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var payload struct {
		Address struct {
			Suburb  string `json:"suburb"`
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	for _, candidate := range []string{payload.Address.Suburb, payload.Address.City, payload.Address.Town, payload.Address.Village} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", nil
}

// CachedGeocoder caches reverse lookups in Redis with an injected TTL.
// Coordinates are bucketed to ~100m so nearby requests share entries.
type CachedGeocoder struct {
	inner       Geocoder
	redisClient *redis.Client
	ttl         time.Duration
}

func NewCachedGeocoder(inner Geocoder, redisClient *redis.Client, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, redisClient: redisClient, ttl: ttl}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	key := fmt.Sprintf("geocode:%.3f:%.3f", lat, lng)

	if c.redisClient != nil {
		if cached, err := c.redisClient.Get(ctx, key).Result(); err == nil {
			return cached, nil
		}
	}

	locality, err := c.inner.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return "", err
	}

	if c.redisClient != nil && locality != "" {
		_ = c.redisClient.Set(ctx, key, locality, c.ttl).Err()
	}
	return locality, nil
}

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance between two coordinates in
// meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
