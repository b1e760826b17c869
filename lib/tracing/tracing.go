package tracing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gfx.cafe/util/go/gotel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	ServiceName      string
	ServiceNamespace string
	Endpoint         string
	BatchTimeout     time.Duration
	// SampleRate is never, always, a ratio in [0, 1] or a percentage in (1, 100]
	SampleRate string
}

// Init installs the global otel tracer provider. The returned func flushes and stops it.
func Init(ctx context.Context, config Config) (gotel.ShutdownFunc, error) {
	if config.ServiceName == "" {
		config.ServiceName = "sqlpool"
	}
	if config.ServiceNamespace == "" {
		config.ServiceNamespace = "gfx.cafe/gfx"
	}

	options := []gotel.Option{
		gotel.WithServiceName(config.ServiceName),
		gotel.WithServiceNamespace(config.ServiceNamespace),
	}

	if config.BatchTimeout > 0 {
		options = append(options, gotel.WithBatchTimeout(config.BatchTimeout))
	}

	if config.Endpoint != "" {
		options = append(options, gotel.WithEndpoint(config.Endpoint))
	}

	if config.SampleRate != "" {
		sampler, err := Sampler(config.SampleRate)
		if err != nil {
			return nil, err
		}
		options = append(options, gotel.WithSampler(sampler))
	}

	return gotel.InitTracing(ctx, options...)
}

func Sampler(rate string) (sdktrace.Sampler, error) {
	switch strings.ToLower(strings.TrimSpace(rate)) {
	case "never", "none", "off":
		return sdktrace.NeverSample(), nil
	case "always", "all", "on":
		return sdktrace.AlwaysSample(), nil
	}

	val, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
	if err != nil {
		return nil, fmt.Errorf("unknown sampler type/ratio value %q: %w", rate, err)
	}
	if val > 1 {
		val = val / 100
	}
	if val < 0 || val > 1 {
		return nil, fmt.Errorf("sampler ratio must be >= 0.0 and <= 1.0: %q", rate)
	}
	return sdktrace.TraceIDRatioBased(val), nil
}
