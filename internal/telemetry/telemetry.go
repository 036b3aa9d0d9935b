// Package telemetry exposes the OpenTelemetry counters the sync engine
// reports into, and the optional stdout exporter behind them.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"gopkg.in/natefinch/lumberjack.v2"
)

const meterName = "argoya/sync"

// Config controls metric export.
type Config struct {
	File     string        `mapstructure:"file"`
	Interval time.Duration `mapstructure:"interval"`
}

// Metrics groups the instruments of one client.
type Metrics struct {
	Polls            metric.Int64Counter
	PollFailures     metric.Int64Counter
	MessagesFetched  metric.Int64Counter
	MessagesAppended metric.Int64Counter
	DecryptFailures  metric.Int64Counter
	Sends            metric.Int64Counter
	SendFailures     metric.Int64Counter
	KeysLearned      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.Polls, "argoya.sync.polls", "Poll cycles started"},
		{&m.PollFailures, "argoya.sync.poll_failures", "Poll cycles that failed and will retry"},
		{&m.MessagesFetched, "argoya.sync.messages_fetched", "Messages returned by the relay"},
		{&m.MessagesAppended, "argoya.sync.messages_appended", "Messages added to the local log"},
		{&m.DecryptFailures, "argoya.sync.decrypt_failures", "Messages shown as placeholder"},
		{&m.Sends, "argoya.sync.sends", "Messages accepted by the relay"},
		{&m.SendFailures, "argoya.sync.send_failures", "Messages the relay did not accept"},
		{&m.KeysLearned, "argoya.keyexchange.keys_learned", "Peer session keys unwrapped"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

// Nop returns instruments that record nothing.
func Nop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(meterName))
	return m
}

// Loop tags a measurement with the poll loop that produced it.
func Loop(name string) metric.AddOption {
	return metric.WithAttributes(attribute.String("loop", name))
}

// Setup returns Metrics for cfg. With no file configured the instruments are
// no-ops. Otherwise a periodic stdout exporter writes JSON snapshots into a
// rotated file; shutdown flushes and closes it.
func Setup(cfg Config) (*Metrics, func(context.Context) error, error) {
	if cfg.File == "" {
		return Nop(), func(context.Context) error { return nil }, nil
	}
	sink := &lumberjack.Logger{Filename: cfg.File, MaxSize: 10, MaxBackups: 3, Compress: true}
	return setup(sink, cfg.Interval, sink)
}

func setup(w io.Writer, interval time.Duration, closer io.Closer) (*Metrics, func(context.Context) error, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("metric exporter: %w", err)
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	m, err := NewMetrics(provider.Meter(meterName))
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, nil, err
	}
	shutdown := func(ctx context.Context) error {
		err := provider.Shutdown(ctx)
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
		return err
	}
	return m, shutdown, nil
}
