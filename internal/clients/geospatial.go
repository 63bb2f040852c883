package clients

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// GeospatialClient wraps the geospatial service used for address resolution and
// field-visit route planning.
type GeospatialClient struct {
	c *httpClient
}

func NewGeospatialClient(baseURL string, log *slog.Logger) *GeospatialClient {
	return &GeospatialClient{c: newHTTPClient("geospatial", baseURL, 30*time.Second, log)}
}

type GeocodeResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Formatted string  `json:"formatted"`
}

// Geocode resolves a free-form address to coordinates.
func (g *GeospatialClient) Geocode(ctx context.Context, address string) (GeocodeResult, error) {
	var out GeocodeResult
	err := g.c.doJSON(ctx, http.MethodPost, "/api/geocode", map[string]string{"address": address}, &out)
	if err != nil {
		return GeocodeResult{}, err
	}
	return out, nil
}

type RouteStop struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type OptimizedRoute struct {
	Order          []string `json:"order"`
	DistanceMeters int      `json:"distanceMeters"`
	DurationSec    int      `json:"durationSec"`
}

// OptimizeRoute orders stops for a field visit; the solver runs remotely.
func (g *GeospatialClient) OptimizeRoute(ctx context.Context, stops []RouteStop) (OptimizedRoute, error) {
	var out OptimizedRoute
	err := g.c.doJSON(ctx, http.MethodPost, "/api/routes/optimize", map[string]any{"stops": stops}, &out)
	if err != nil {
		return OptimizedRoute{}, err
	}
	return out, nil
}

func (g *GeospatialClient) HealthCheck(ctx context.Context) bool {
	return g.c.healthOK(ctx)
}
