// Package util holds the container and polling helpers of the integration
// tests. Every Start function returns the endpoint of a disposable service
// and a cleanup function terminating it.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	RedisReadyTimeout     = 5 * time.Second
	InfluxReadyTimeout    = 60 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// Influx provisioning used by StartInflux.
const (
	InfluxOrg    = "erdispatch"
	InfluxBucket = "dispatch"
	InfluxToken  = "erdispatch-test-token"
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
connection_messages true
`

// poll calls probe until it succeeds or ctx is done.
func poll(ctx context.Context, probe func(context.Context) error) error {
	for {
		err := probe(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(pollInterval):
		}
	}
}

// startContainer runs req and returns host:port of the first exposed port.
func startContainer(ctx context.Context, req tc.ContainerRequest) (string, func(), error) {
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }
	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), cleanup, nil
}

// WaitForMetric polls metricsURL until its body contains substr.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	return poll(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read metrics body: %w", err)
		}
		if !strings.Contains(string(body), substr) {
			return fmt.Errorf("metric %q not found", substr)
		}
		return nil
	})
}

// StartMosquitto returns a tcp:// broker URL accepting anonymous clients.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	addr, cleanup, err := startContainer(ctx, tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			Reader:            strings.NewReader(mosquittoConf),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	})
	if err != nil {
		return "", nil, err
	}
	broker := "tcp://" + addr

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	if err := poll(waitCtx, func(context.Context) error {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			return err
		}
		cli.Disconnect(100)
		return nil
	}); err != nil {
		cleanup()
		return "", nil, err
	}
	return broker, cleanup, nil
}

// StartRedis returns the host:port of a Redis server answering PING.
func StartRedis(ctx context.Context) (string, func(), error) {
	addr, cleanup, err := startContainer(ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		return "", nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, RedisReadyTimeout)
	defer cancel()
	cli := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = cli.Close() }()
	if err := poll(waitCtx, func(ctx context.Context) error { return cli.Ping(ctx).Err() }); err != nil {
		cleanup()
		return "", nil, err
	}
	return addr, cleanup, nil
}

// StartInflux returns the base URL of an InfluxDB 2.7 server provisioned
// with InfluxOrg, InfluxBucket and InfluxToken.
func StartInflux(ctx context.Context) (string, func(), error) {
	addr, cleanup, err := startContainer(ctx, tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "erdispatch",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "erdispatch-password",
			"DOCKER_INFLUXDB_INIT_ORG":         InfluxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      InfluxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": InfluxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(InfluxReadyTimeout),
	})
	if err != nil {
		return "", nil, err
	}
	return "http://" + addr, cleanup, nil
}
