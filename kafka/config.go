package kafka

import (
	"fmt"
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

const (
	DefaultGroupID      = "transcriptcheck"
	DefaultVerdictTopic = "transcriptcheck.verdicts"
	DefaultRequestTopic = "transcriptcheck.requests"
)

// Config holds broker connection settings and the two topics the service uses.
type Config struct {
	// Enabled controls whether verdicts are published and requests consumed.
	Enabled bool `mapstructure:"enabled"`

	Brokers []string `mapstructure:"brokers"`

	// GroupID is the consumer group of the validation worker.
	GroupID string `mapstructure:"group_id"`

	// VerdictTopic receives one JSON verdict per finished audit, keyed by video id.
	VerdictTopic string `mapstructure:"verdict_topic"`
	// RequestTopic carries {"video_id": "..."} validation requests.
	RequestTopic string `mapstructure:"request_topic"`

	// TLS
	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	TLSCertFile   string `mapstructure:"tls_cert_file"`
	TLSKeyFile    string `mapstructure:"tls_key_file"`

	// SASL
	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	// Producer
	Compression  string `mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	Retries      int    `mapstructure:"retries"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout string `mapstructure:"batch_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	RequiredAcks int    `mapstructure:"required_acks"`

	// Consumer
	SessionTimeout    string `mapstructure:"session_timeout"`
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  string `mapstructure:"rebalance_timeout"`
	// HandlerTimeout bounds a single validation triggered by a request message.
	HandlerTimeout string `mapstructure:"handler_timeout"`

	DialTimeout string `mapstructure:"dial_timeout"`
	IdleTimeout string `mapstructure:"idle_timeout"`
	MetadataTTL string `mapstructure:"metadata_ttl"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.GroupID == "" {
		c.GroupID = DefaultGroupID
	}
	if c.VerdictTopic == "" {
		c.VerdictTopic = DefaultVerdictTopic
	}
	if c.RequestTopic == "" {
		c.RequestTopic = DefaultRequestTopic
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	// verdicts are written one at a time, a large batch only adds latency
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "50ms"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1 // all replicas
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
	}
	if c.RebalanceTimeout == "" {
		c.RebalanceTimeout = "30s"
	}
	if c.HandlerTimeout == "" {
		c.HandlerTimeout = "5m"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30s"
	}
	if c.MetadataTTL == "" {
		c.MetadataTTL = "6s"
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks that required fields are present and parseable. A disabled
// config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return apperrors.Configuration("kafka: brokers are required")
	}
	if c.VerdictTopic == "" || c.RequestTopic == "" {
		return apperrors.Configuration("kafka: verdict_topic and request_topic are required")
	}
	if c.VerdictTopic == c.RequestTopic {
		return apperrors.Configuration("kafka: verdict_topic and request_topic must differ").
			WithDetail("topic", c.VerdictTopic)
	}
	for _, d := range []struct {
		name, val string
	}{
		{"batch_timeout", c.BatchTimeout},
		{"write_timeout", c.WriteTimeout},
		{"session_timeout", c.SessionTimeout},
		{"heartbeat_interval", c.HeartbeatInterval},
		{"rebalance_timeout", c.RebalanceTimeout},
		{"handler_timeout", c.HandlerTimeout},
		{"dial_timeout", c.DialTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"metadata_ttl", c.MetadataTTL},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return apperrors.Configuration(fmt.Sprintf("kafka: invalid %s %q", d.name, d.val)).WithCause(err)
		}
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return apperrors.Configuration("kafka: unsupported SASL mechanism " + c.SASLMechanism)
		}
		if c.Username == "" {
			return apperrors.Configuration("kafka: SASL username is required")
		}
	}
	if c.Retries <= 0 {
		return apperrors.Configuration("kafka: retries must be > 0")
	}
	if c.BatchSize <= 0 {
		return apperrors.Configuration("kafka: batch_size must be > 0")
	}
	return nil
}

// ParseDuration parses a duration string, returning zero on empty or bad input.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
