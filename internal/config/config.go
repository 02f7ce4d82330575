package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTruckAPIURLs        = "http://localhost/trucks/sample"
	DefaultPollIntervalSeconds = 10
	DefaultHTTPTimeoutSeconds  = 30

	DefaultKafkaBrokers    = "localhost:9092"
	DefaultKafkaTopic      = "truck-telemetry"
	DefaultKafkaClientID   = "truck-poller"
	DefaultSourceTopic     = "truck-telemetry"
	DefaultTargetTopic     = "eda-topic"
	DefaultConsumerGroup   = "truck-eda-filter-group"
	DefaultTopicPartitions = 3

	DefaultPollerMetricsAddr = ":9090"
	DefaultFilterMetricsAddr = ":9091"
)

// Endpoint is one configured truck API endpoint. Index is the position
// in the configured list and drives the timer phase offset and the
// logical truck number.
type Endpoint struct {
	URL   string
	Index int
}

// TruckNumber is the 1-based logical truck number for this endpoint.
func (e Endpoint) TruckNumber() int { return e.Index + 1 }

type Config struct {
	Endpoints           []Endpoint
	PollIntervalSeconds int
	HTTPTimeoutSeconds  int

	KafkaBrokers    []string
	KafkaTopic      string
	KafkaClientID   string
	SourceTopic     string
	TargetTopic     string
	ConsumerGroup   string
	TopicPartitions int

	PollerMetricsAddr string
	FilterMetricsAddr string
}

func (c *Config) String() string {
	urls := make([]string, 0, len(c.Endpoints))
	for _, e := range c.Endpoints {
		urls = append(urls, e.URL)
	}
	return fmt.Sprintf(`
Poller:
  Endpoints:     %v
  PollInterval:  %ds
  HTTPTimeout:   %ds

Kafka:
  Brokers:       %v
  Topic:         %s
  ClientID:      %s
  SourceTopic:   %s
  TargetTopic:   %s
  ConsumerGroup: %s
  Partitions:    %d
`, urls, c.PollIntervalSeconds, c.HTTPTimeoutSeconds,
		c.KafkaBrokers, c.KafkaTopic, c.KafkaClientID,
		c.SourceTopic, c.TargetTopic, c.ConsumerGroup, c.TopicPartitions)
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

type errList []string

func (e *errList) addf(format string, a ...any) {
	*e = append(*e, fmt.Sprintf(format, a...))
}
func (e *errList) has() bool { return len(*e) > 0 }

// ParseEndpoints splits a comma-separated URL list into Endpoints.
// Entries are trimmed; a blank entry is a configuration error.
func ParseEndpoints(list string) ([]Endpoint, error) {
	parts := strings.Split(list, ",")
	out := make([]Endpoint, 0, len(parts))
	for i, p := range parts {
		u := strings.TrimSpace(p)
		if u == "" {
			return nil, fmt.Errorf("endpoint list entry %d is empty", i)
		}
		out = append(out, Endpoint{URL: u, Index: len(out)})
	}
	return out, nil
}

type endpointsFile struct {
	Endpoints []string `yaml:"endpoints"`
}

// loadEndpointsFile reads a YAML file of the form:
//
//	endpoints:
//	  - http://h1/trucks/sample
//	  - http://h2/trucks/sample
func loadEndpointsFile(path string) ([]Endpoint, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}
	var f endpointsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse endpoints file: %w", err)
	}
	if len(f.Endpoints) == 0 {
		return nil, errors.New("endpoints file lists no endpoints")
	}
	out := make([]Endpoint, 0, len(f.Endpoints))
	for i, u := range f.Endpoints {
		u = strings.TrimSpace(u)
		if u == "" {
			return nil, fmt.Errorf("endpoints file entry %d is empty", i)
		}
		out = append(out, Endpoint{URL: u, Index: len(out)})
	}
	return out, nil
}

func parseBrokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if s := strings.TrimSpace(b); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadConfig builds the full relay configuration from the environment.
// All startup validation failures are reported together.
func LoadConfig() (*Config, error) {
	var errs errList

	var endpoints []Endpoint
	var err error
	if path := strings.TrimSpace(os.Getenv("ENDPOINTS_FILE")); path != "" {
		endpoints, err = loadEndpointsFile(path)
	} else {
		endpoints, err = ParseEndpoints(envOrDefault("TRUCK_API_URLS", DefaultTruckAPIURLs))
	}
	if err != nil {
		errs.addf("endpoints: %v", err)
	}

	cfg := &Config{
		Endpoints:           endpoints,
		PollIntervalSeconds: envOrDefaultInt("POLL_INTERVAL_SECONDS", DefaultPollIntervalSeconds),
		HTTPTimeoutSeconds:  envOrDefaultInt("HTTP_TIMEOUT_SECONDS", DefaultHTTPTimeoutSeconds),

		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BOOTSTRAP_SERVERS", DefaultKafkaBrokers)),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", DefaultKafkaTopic),
		KafkaClientID:   envOrDefault("KAFKA_CLIENT_ID", DefaultKafkaClientID),
		SourceTopic:     envOrDefault("KAFKA_SOURCE_TOPIC", DefaultSourceTopic),
		TargetTopic:     envOrDefault("KAFKA_TARGET_TOPIC", DefaultTargetTopic),
		ConsumerGroup:   envOrDefault("KAFKA_CONSUMER_GROUP", DefaultConsumerGroup),
		TopicPartitions: envOrDefaultInt("KAFKA_TOPIC_PARTITIONS", DefaultTopicPartitions),

		PollerMetricsAddr: envOrDefault("POLLER_METRICS_ADDR", DefaultPollerMetricsAddr),
		FilterMetricsAddr: envOrDefault("FILTER_METRICS_ADDR", DefaultFilterMetricsAddr),
	}

	if cfg.PollIntervalSeconds < 1 {
		errs.addf("POLL_INTERVAL_SECONDS must be >= 1, got %d", cfg.PollIntervalSeconds)
	}
	if cfg.HTTPTimeoutSeconds < 1 {
		errs.addf("HTTP_TIMEOUT_SECONDS must be >= 1, got %d", cfg.HTTPTimeoutSeconds)
	}
	if len(cfg.KafkaBrokers) == 0 {
		errs.addf("KAFKA_BOOTSTRAP_SERVERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		errs.addf("KAFKA_TOPIC must not be empty")
	}
	if cfg.SourceTopic == "" || cfg.TargetTopic == "" {
		errs.addf("KAFKA_SOURCE_TOPIC and KAFKA_TARGET_TOPIC must not be empty")
	}
	if cfg.TopicPartitions < 1 {
		errs.addf("KAFKA_TOPIC_PARTITIONS must be >= 1, got %d", cfg.TopicPartitions)
	}

	if errs.has() {
		lg := GetLogger()
		for _, e := range errs {
			lg.Printf("[config] %s", e)
		}
		return nil, errors.New("invalid configuration, see logs above")
	}
	return cfg, nil
}
