package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/nemspd/core/solution"
	"github.com/kilianp07/nemspd/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT publisher.
type Config struct {
	Enabled     bool            `json:"enabled"`
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// SetDefaults fills the topic prefix.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "nemspd"
	}
}

// Validate checks the connection parameters of an enabled publisher.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("publisher broker required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("publisher client_id required")
	}
	return nil
}

// pahoClient is the slice of the Paho API the publisher uses.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoPublisher pushes solved results to MQTT topics using Eclipse Paho.
type PahoPublisher struct {
	cli    pahoClient
	prefix string
	qos    map[string]byte

	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewPahoPublisher connects to the MQTT broker.
func NewPahoPublisher(cfg Config) (*PahoPublisher, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	p := &PahoPublisher{
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(_ paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// PublishSolution pushes the solved interval: a run summary, then one
// message per region, trader and interconnector under the case topic.
func (p *PahoPublisher) PublishSolution(sol *solution.Solution) error {
	summary := struct {
		RunID        string  `json:"run_id"`
		CaseID       string  `json:"case_id"`
		Intervention string  `json:"intervention"`
		Objective    float64 `json:"objective"`
		DispatchCost float64 `json:"dispatch_cost"`
		ViolationMW  float64 `json:"violation_mw"`
		Priced       bool    `json:"priced"`
		Timestamp    int64   `json:"timestamp"`
	}{
		RunID:        sol.RunID,
		CaseID:       sol.CaseID,
		Intervention: sol.Intervention,
		Objective:    sol.Objective,
		DispatchCost: sol.DispatchCost,
		ViolationMW:  sol.ViolationMW,
		Priced:       sol.Priced,
		Timestamp:    time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	base := fmt.Sprintf("%s/%s", p.prefix, sol.CaseID)
	if err := p.publish(base+"/summary", "summary", payload); err != nil {
		return err
	}
	for _, id := range sortedKeys(sol.Regions) {
		b, err := json.Marshal(sol.Regions[id])
		if err != nil {
			return err
		}
		if err := p.publish(fmt.Sprintf("%s/region/%s", base, id), "region", b); err != nil {
			return err
		}
	}
	for _, id := range sortedKeys(sol.Traders) {
		b, err := json.Marshal(sol.Traders[id])
		if err != nil {
			return err
		}
		if err := p.publish(fmt.Sprintf("%s/trader/%s", base, id), "trader", b); err != nil {
			return err
		}
	}
	for _, id := range sortedKeys(sol.Interconnectors) {
		b, err := json.Marshal(sol.Interconnectors[id])
		if err != nil {
			return err
		}
		if err := p.publish(fmt.Sprintf("%s/interconnector/%s", base, id), "interconnector", b); err != nil {
			return err
		}
	}
	p.logger.Infof("published case %s results (%d regions, %d traders, %d interconnectors)",
		sol.CaseID, len(sol.Regions), len(sol.Traders), len(sol.Interconnectors))
	return nil
}

func (p *PahoPublisher) publish(topic, qosKey string, payload []byte) error {
	qos := byte(0)
	if q, ok := p.qos[qosKey]; ok {
		qos = q
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoPublisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
