package opentelemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
)

// DefaultMeter is the meter used by all components. It reports against a
// no-op provider until Init() is called.
var DefaultMeter metric.Meter = otel.Meter("img-optimizer")

func Init(ctx context.Context) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("img-optimizer")),
	)
	if err != nil {
		return err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(meterProvider)

	DefaultMeter = meterProvider.Meter("img-optimizer")

	return nil
}
