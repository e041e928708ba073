// Package influx mirrors numeric and boolean state values into InfluxDB.
package influx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/config"
	"github.com/anicoll/blink-integration/internal/pkg/model"
)

const (
	measurement    = "state"
	connectTimeout = 10 * time.Second
)

var ErrConnect = errors.New("influxdb connection failed")

type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

type service struct {
	client   influxdb2.Client
	writeAPI pointWriter
	logger   *zap.Logger
}

// Connect pings the server and opens a non-blocking write API. Write errors
// are reported to the log asynchronously.
func Connect(ctx context.Context, cfg *config.InfluxConfig) (*service, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnect)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	s := newService(writeAPI)
	s.client = client
	go func() {
		for err := range writeAPI.Errors() {
			s.logger.Error("influxdb write failed", zap.Error(err))
		}
	}()
	return s, nil
}

func newService(w pointWriter) *service {
	return &service{
		writeAPI: w,
		logger:   zap.L(), // returns the global logger.
	}
}

// CreateObject is a no-op, series are created on first write.
func (s *service) CreateObject(context.Context, model.Declaration) error {
	return nil
}

// WriteState queues a point for numbers and booleans. Strings are not
// recorded as time series.
func (s *service) WriteState(_ context.Context, path string, st model.State) error {
	var value any
	switch st.Val.Kind() {
	case model.KindNumber, model.KindBoolean:
		value = st.Val.Any()
	default:
		return nil
	}

	segments := strings.Split(path, ".")
	tags := map[string]string{
		"path":      path,
		"network":   segments[0],
		"attribute": segments[len(segments)-1],
	}
	if len(segments) == 3 {
		tags["device"] = segments[1]
	}
	s.writeAPI.WritePoint(write.NewPoint(measurement, tags, map[string]interface{}{
		"value": value,
		"ack":   st.Ack,
	}, st.TS))
	return nil
}

func (s *service) Close() error {
	s.writeAPI.Flush()
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
