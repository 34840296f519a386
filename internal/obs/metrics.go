package obs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type OTELConfig struct {
	Enable      bool
	Endpoint    string
	ServiceName string
	Interval    time.Duration
	Insecure    bool
}

// MeterProvider wraps the SDK provider with its shutdown.
type MeterProvider struct {
	*sdkmetric.MeterProvider
	Shutdown func(context.Context) error
}

// NewMeterProvider returns a provider that pushes to an OTLP gRPC collector.
// When disabled or without an endpoint it returns a provider with no reader.
func NewMeterProvider(ctx context.Context, c OTELConfig) (*MeterProvider, error) {
	endpoint := strings.TrimSpace(c.Endpoint)
	if !c.Enable || endpoint == "" {
		mp := sdkmetric.NewMeterProvider()
		return &MeterProvider{MeterProvider: mp, Shutdown: mp.Shutdown}, nil
	}

	target, insecure, err := grpcTarget(endpoint)
	if err != nil {
		return nil, err
	}
	insecure = insecure || c.Insecure

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", c.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	interval := c.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)
	return &MeterProvider{MeterProvider: mp, Shutdown: mp.Shutdown}, nil
}

// grpcTarget reduces an endpoint URL to host:port. Plain http, or no scheme,
// means an insecure connection.
func grpcTarget(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}
