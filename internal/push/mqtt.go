package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const mqttPublishTimeout = 5 * time.Second

// MQTTMirror publishes events to tv/<screenId>/events.
type MQTTMirror struct {
	client mqtt.Client
}

var _ Mirror = (*MQTTMirror)(nil)

// MQTTTopic is the topic a screen's events are mirrored to.
func MQTTTopic(screenID string) string {
	return fmt.Sprintf("tv/%s/events", screenID)
}

func NewMQTTMirror(brokerURL, clientID string) (*MQTTMirror, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", brokerURL).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTMirror{client: client}, nil
}

func (m *MQTTMirror) Publish(_ context.Context, evt model.PushEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	token := m.client.Publish(MQTTTopic(evt.ScreenID), 1, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("publish to %s timed out", MQTTTopic(evt.ScreenID))
	}
	return token.Error()
}

func (m *MQTTMirror) Close() {
	m.client.Disconnect(250)
}
