package relay

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const mqttConnectTimeout = 5 * time.Second

var newMQTTClient = mqtt.NewClient

type mqttTransport struct {
	client mqtt.Client
	topic  string
}

func dialMQTT(u *url.URL) (Transport, error) {
	topic := strings.TrimPrefix(u.Path, "/")
	if topic == "" {
		return nil, domain.ErrTransportUnavailable.WithError(fmt.Errorf("mqtt address has no topic"))
	}
	if u.Host == "" {
		return nil, domain.ErrTransportUnavailable.WithError(fmt.Errorf("mqtt address has no broker"))
	}

	hostname, _ := os.Hostname()
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + u.Host).
		SetClientID("facegate-kiosk-" + hostname).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			opts.SetPassword(pw)
		}
	}

	client := newMQTTClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		// The attempt keeps running in the background; stop it so a late
		// success does not leave a live connection behind.
		client.Disconnect(0)
		return nil, domain.ErrTransportUnavailable.WithError(fmt.Errorf("connect %s: timeout", u.Host))
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, domain.ErrTransportUnavailable.WithError(fmt.Errorf("connect %s: %w", u.Host, err))
	}

	return &mqttTransport{client: client, topic: topic}, nil
}

func (t *mqttTransport) Write(ctx context.Context, payload []byte) error {
	token := t.client.Publish(t.topic, 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", t.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", t.topic, ctx.Err())
	}
}

func (t *mqttTransport) Close() error {
	t.client.Disconnect(250)
	return nil
}
