package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient wraps the official client with the query and provisioning
// helpers the suite needs to inspect what the service wrote.
type InfluxClient struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{org: org, bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// CountRecords returns the number of records of measurement written in the
// last minute, optionally filtered on one tag.
func (c *InfluxClient) CountRecords(ctx context.Context, measurement, tag, value string) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q) |> range(start:-1m) |> filter(fn: (r) => r._measurement == %q)`, c.bucket, measurement)
	if tag != "" {
		flux += fmt.Sprintf(` |> filter(fn: (r) => r[%q] == %q)`, tag, value)
	}
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// EnsureBucket creates the organisation and bucket when the container was
// not provisioned with them.
func (c *InfluxClient) EnsureBucket(ctx context.Context) error {
	orgAPI := c.client.OrganizationsAPI()
	org, err := orgAPI.FindOrganizationByName(ctx, c.org)
	if err != nil || org == nil {
		if org, err = orgAPI.CreateOrganizationWithName(ctx, c.org); err != nil {
			return fmt.Errorf("create org: %w", err)
		}
	}
	bucketAPI := c.client.BucketsAPI()
	if b, err := bucketAPI.FindBucketByName(ctx, c.bucket); err == nil && b != nil {
		return nil
	}
	if _, err := bucketAPI.CreateBucketWithName(ctx, org, c.bucket); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (c *InfluxClient) Close() { c.client.Close() }
