// Package mqtt publishes dive samples to an MQTT broker for live telemetry.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/haldane/internal/storage"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/chrissnell/haldane/pkg/config"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Storage publishes each reading as JSON to <prefix>/<session>/sample.
type Storage struct {
	client paho.Client
	prefix string
	qos    byte
	logger *zap.SugaredLogger
}

// New connects to the configured broker.
func New(c *config.MQTTData, logger *zap.SugaredLogger) (*Storage, error) {
	clientID := c.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("haldane-%d", time.Now().Unix())
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.Broker)
	opts.SetClientID(clientID)
	opts.SetUsername(c.Username)
	opts.SetPassword(c.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.OnConnect = func(paho.Client) {
		logger.Infof("connected to MQTT broker %s", c.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		logger.Warnf("MQTT broker %s not reachable yet, retrying in the background", c.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("could not connect to MQTT broker %s: %w", c.Broker, err)
	}

	return NewWithClient(client, c.TopicPrefix, c.QoS, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client paho.Client, prefix string, qos byte, logger *zap.SugaredLogger) *Storage {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Storage{client: client, prefix: prefix, qos: qos, logger: logger}
}

// StartStorageEngine creates a goroutine loop to receive readings and
// publish them to the broker
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Reading {
	s.logger.Info("starting MQTT storage engine...")
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.client.Disconnect(250)
	}()
	return storage.StartProcessor(ctx, wg, s.StoreReading, "MQTT", s.logger)
}

// Topic returns the topic a session's samples are published on.
func (s *Storage) Topic(session string) string {
	return fmt.Sprintf("%s/%s/sample", s.prefix, session)
}

// StoreReading publishes one reading.
func (s *Storage) StoreReading(r types.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("could not encode reading: %w", err)
	}

	token := s.client.Publish(s.Topic(r.SessionID), s.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", s.Topic(r.SessionID))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("could not publish to %s: %w", s.Topic(r.SessionID), err)
	}
	return nil
}

// CheckHealth reports whether the client currently holds a broker connection.
func (s *Storage) CheckHealth(context.Context) error {
	if !s.client.IsConnectionOpen() {
		return fmt.Errorf("not connected to MQTT broker")
	}
	return nil
}
