// Package opensearch stores device metrics and driving reports in OpenSearch
// and aggregates driver-behaviour scores for the discount job.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/telemetry/domain"
	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const defaultPageSize = 1000

// Config configures the OpenSearch connection and indices.
type Config struct {
	Addresses   []string
	Username    string
	Password    string
	ReportIndex string
	MetricIndex string
}

// NewClient creates an OpenSearch client.
func NewClient(cfg Config) (*opensearch.Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return client, nil
}

// Store implements domain.Store.
type Store struct {
	transport   opensearchapi.Transport
	reportIndex string
	metricIndex string
	pageSize    int
	logger      *slog.Logger
}

// NewStore creates a store. transport is usually an *opensearch.Client.
func NewStore(transport opensearchapi.Transport, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		transport:   transport,
		reportIndex: cfg.ReportIndex,
		metricIndex: cfg.MetricIndex,
		pageSize:    defaultPageSize,
		logger:      logger,
	}
}

type reportDocument struct {
	Device                  string `json:"device"`
	Vehicle                 string `json:"vehicle"`
	Start                   int64  `json:"start"`
	End                     int64  `json:"end"`
	DriverBehaviourClass    string `json:"driver_behaviour_class"`
	DriverBehaviourClassInt int    `json:"driver_behaviour_class_int"`
}

type metricDocument struct {
	Device    string         `json:"device"`
	Vehicle   string         `json:"vehicle"`
	Timestamp int64          `json:"timestamp"`
	OBDData   domain.OBDData `json:"obd_data"`
}

// RegisterReport indexes a driving report, routed by vehicle.
func (s *Store) RegisterReport(ctx context.Context, report domain.Report) error {
	return s.index(ctx, s.reportIndex, report.Vehicle, reportDocument{
		Device:                  report.Device,
		Vehicle:                 report.Vehicle,
		Start:                   report.Start.UnixMilli(),
		End:                     report.End.UnixMilli(),
		DriverBehaviourClass:    string(report.Class),
		DriverBehaviourClassInt: report.ClassInt,
	})
}

// RegisterMetric indexes a device sample, routed by vehicle.
func (s *Store) RegisterMetric(ctx context.Context, metric domain.Metric) error {
	return s.index(ctx, s.metricIndex, metric.Vehicle, metricDocument{
		Device:    metric.Device,
		Vehicle:   metric.Vehicle,
		Timestamp: metric.Timestamp.UnixMilli(),
		OBDData:   metric.OBD,
	})
}

func (s *Store) index(ctx context.Context, index, routing string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := opensearchapi.IndexRequest{
		Index:      index,
		DocumentID: uuid.NewString(),
		Routing:    routing,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.transport)
	if err != nil {
		return fmt.Errorf("%w: index %s: %v", sharedDomain.ErrDependency, index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: index %s: %s", sharedDomain.ErrDependency, index, res.String())
	}
	return nil
}

// AverageDriverBehaviour runs an avg aggregation over the report scores.
func (s *Store) AverageDriverBehaviour(ctx context.Context, vin string, start, end time.Time) (float64, bool, error) {
	query := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"vehicle": vin}},
					epochRange("start", start, end),
				},
			},
		},
		"aggs": map[string]any{
			"average_driver_behaviour": map[string]any{
				"avg": map[string]any{"field": "driver_behaviour_class_int"},
			},
		},
	}

	var out struct {
		Aggregations struct {
			AverageDriverBehaviour struct {
				Value *float64 `json:"value"`
			} `json:"average_driver_behaviour"`
		} `json:"aggregations"`
	}
	if err := s.search(ctx, s.reportIndex, query, &out); err != nil {
		return 0, false, err
	}

	value := out.Aggregations.AverageDriverBehaviour.Value
	if value == nil {
		return 0, false, nil
	}
	return *value, true, nil
}

// SessionMetrics pages through the samples with search_after.
func (s *Store) SessionMetrics(ctx context.Context, vin string, start, end time.Time) ([]domain.Metric, error) {
	var (
		metrics     []domain.Metric
		searchAfter []any
	)
	for {
		query := map[string]any{
			"size": s.pageSize,
			"sort": []any{map[string]any{"timestamp": map[string]any{"order": "desc"}}},
			"query": map[string]any{
				"bool": map[string]any{
					"filter": []any{
						map[string]any{"term": map[string]any{"vehicle": vin}},
						epochRange("timestamp", start, end),
					},
				},
			},
		}
		if searchAfter != nil {
			query["search_after"] = searchAfter
		}

		var out struct {
			Hits struct {
				Hits []struct {
					Source metricDocument `json:"_source"`
					Sort   []any          `json:"sort"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if err := s.search(ctx, s.metricIndex, query, &out); err != nil {
			return nil, err
		}

		hits := out.Hits.Hits
		for _, hit := range hits {
			metrics = append(metrics, domain.Metric{
				Vehicle:   hit.Source.Vehicle,
				Device:    hit.Source.Device,
				Timestamp: time.UnixMilli(hit.Source.Timestamp).UTC(),
				OBD:       hit.Source.OBDData,
			})
		}
		if len(hits) < s.pageSize {
			return metrics, nil
		}
		searchAfter = hits[len(hits)-1].Sort
	}
}

func (s *Store) search(ctx context.Context, index string, query map[string]any, out any) error {
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.transport)
	if err != nil {
		return fmt.Errorf("%w: search %s: %v", sharedDomain.ErrDependency, index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: search %s: %s", sharedDomain.ErrDependency, index, res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func epochRange(field string, start, end time.Time) map[string]any {
	return map[string]any{
		"range": map[string]any{
			field: map[string]any{
				"gte":    start.UnixMilli(),
				"lte":    end.UnixMilli(),
				"format": "epoch_millis",
			},
		},
	}
}
