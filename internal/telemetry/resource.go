package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ServiceNamespace groups the sync service with the rest of the healthstats stack
const ServiceNamespace = "healthstats"

// serviceInstanceID tells apart processes sharing one store, so traces and
// metrics from a process that holds a sync guard can be matched
var serviceInstanceID = uuid.NewString()

// newServiceResource describes this process for both the tracer and meter providers
func newServiceResource(ctx context.Context, name, version string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
			semconv.ServiceNamespace(ServiceNamespace),
			semconv.ServiceInstanceID(serviceInstanceID),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
