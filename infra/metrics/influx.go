package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/infra/logger"
)

const influxTimeout = 5 * time.Second

// InfluxSink stores dispatches, vehicle transitions and loop state changes
// as InfluxDB points.
type InfluxSink struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
	log    logger.Logger
}

// NewInfluxSink accepts either the server base URL or its /api/v2/write
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	opts := influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: influxTimeout})
	client := influxdb2.NewClientWithOptions(strings.TrimSuffix(url, "/api/v2/write"), token, opts)
	return &InfluxSink{client: client, api: client.WriteAPIBlocking(org, bucket), log: logger.New("influx-sink")}
}

// NewInfluxSinkWithFallback returns a NopSink when the server does not
// report a passing health check.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), influxTimeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	switch {
	case err != nil:
		sink.log.Errorf("influx unreachable, metrics disabled: %v", err)
	case health.Status != "pass":
		sink.log.Errorf("influx unhealthy (%s), metrics disabled", health.Status)
	default:
		return sink
	}
	sink.client.Close()
	return coremetrics.NopSink{}
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), influxTimeout)
	defer cancel()
	return s.api.WritePoint(ctx, p)
}

// RecordDispatch writes one handled emergency.
func (s *InfluxSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	p := write.NewPointWithMeasurement("dispatch_event").
		AddTag("category", string(ev.Category)).
		AddTag("outcome", ev.Outcome).
		AddTag("incident_id", ev.IncidentID)
	if ev.Severity != "" {
		p = p.AddTag("severity", string(ev.Severity))
	}
	if ev.VehicleID != "" {
		p = p.AddTag("vehicle_id", ev.VehicleID)
	}
	if ev.Stage != "" {
		p = p.AddTag("stage", ev.Stage)
	}
	p = p.AddField("eta_minutes", ev.ETAMinutes).
		AddField("route_duration_s", round3(ev.RouteDurationS)).
		AddField("route_distance_m", round3(ev.RouteDistanceM)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordVehicleState writes a snapshot of a vehicle.
func (s *InfluxSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	v := ev.Vehicle
	p := write.NewPointWithMeasurement("vehicle_state").
		AddTag("vehicle_id", v.ID).
		AddTag("kind", string(v.Kind)).
		AddField("status", string(v.Status)).
		AddField("from", string(ev.From)).
		AddField("incident_id", v.IncidentID).
		AddField("lat", v.Location.Lat).
		AddField("lon", v.Location.Lon).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSystemState writes a loop state change.
func (s *InfluxSink) RecordSystemState(ev coremetrics.SystemStateEvent) error {
	return s.write(write.NewPointWithMeasurement("system_state").
		AddTag("component", "autonomy").
		AddField("state", ev.State).
		SetTime(ev.Time))
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
