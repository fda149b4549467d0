package stackdriver

import (
	"context"
	"fmt"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"google.golang.org/api/option"
)

// NewMetricClient dials the Cloud Monitoring metric service. Application
// default credentials are used unless credentialsFile is set.
func NewMetricClient(ctx context.Context, credentialsFile string) (*monitoring.MetricClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := monitoring.NewMetricClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric client: %w", err)
	}

	return client, nil
}
