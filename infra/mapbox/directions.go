// Package mapbox queries the Mapbox Directions v5 API for driving routes.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kilianp07/erdispatch/core/calllog"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/routing"
	"github.com/kilianp07/erdispatch/infra/logger"
)

const (
	DefaultBaseURL = "https://api.mapbox.com"
	DefaultTimeout = 5 * time.Second

	profileDriving        = "driving"
	profileDrivingTraffic = "driving-traffic"
)

// ErrNoToken is returned by New when no access token is configured.
var ErrNoToken = errors.New("mapbox: access token is required")

// Config configures the directions client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64        `json:"duration"`
		Distance float64        `json:"distance"`
		Geometry model.Geometry `json:"geometry"`
	} `json:"routes"`
}

// Client implements routing.Provider.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	store   calllog.Store
	log     logger.Logger
}

// New returns a directions client. Calls are audited to store when it is
// non-nil.
func New(cfg Config, store calllog.Store) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if store == nil {
		store = calllog.NopStore{}
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		store:   store,
		log:     logger.New("mapbox"),
	}, nil
}

// Name implements routing.Provider.
func (c *Client) Name() string { return "mapbox" }

// Routes returns the candidate routes for req. Live traffic switches to the
// driving-traffic profile.
func (c *Client) Routes(ctx context.Context, req routing.Request) ([]model.RouteCandidate, error) {
	start := time.Now()
	u := c.url(req)
	routes, raw, err := c.fetch(ctx, u)
	// the token never reaches the audit log
	audit := map[string]any{"request": req, "profile": profile(req)}
	calllog.Write(ctx, c.store, c.log, calllog.NewRecord(c.Name(), start, audit, raw, err))
	if err != nil {
		return nil, err
	}
	c.log.Debugf("%d routes from %s to %s", len(routes), req.Origin, req.Destination)
	return routes, nil
}

func profile(req routing.Request) string {
	if req.LiveTraffic {
		return profileDrivingTraffic
	}
	return profileDriving
}

func (c *Client) url(req routing.Request) string {
	coords := fmt.Sprintf("%f,%f;%f,%f", req.Origin.Lon, req.Origin.Lat, req.Destination.Lon, req.Destination.Lat)
	q := url.Values{}
	q.Set("alternatives", fmt.Sprintf("%t", req.Alternatives))
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	q.Set("annotations", "duration,distance")
	q.Set("access_token", c.token)
	return fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s", c.baseURL, profile(req), coords, q.Encode())
}

func (c *Client) fetch(ctx context.Context, u string) ([]model.RouteCandidate, json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			// strip the URL, it carries the token
			err = uerr.Err
		}
		return nil, nil, fmt.Errorf("mapbox request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("mapbox read body: %w", err)
	}
	var raw json.RawMessage
	if json.Valid(data) {
		raw = data
	}
	var out directionsResponse
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, raw, fmt.Errorf("mapbox: %s", resp.Status)
		}
		return nil, raw, fmt.Errorf("mapbox decode: %w", err)
	}
	if resp.StatusCode/100 != 2 || (out.Code != "" && out.Code != "Ok") {
		msg := out.Message
		if msg == "" {
			msg = out.Code
		}
		return nil, raw, fmt.Errorf("mapbox: %s: %s", resp.Status, msg)
	}
	routes := make([]model.RouteCandidate, 0, len(out.Routes))
	for _, r := range out.Routes {
		routes = append(routes, model.RouteCandidate{Geometry: r.Geometry, Duration: r.Duration, Distance: r.Distance})
	}
	return routes, raw, nil
}
