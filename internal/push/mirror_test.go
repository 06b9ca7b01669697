package push

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// Mirror tests talk to a real broker and only run when one is configured.

func TestMQTTMirrorPublishes(t *testing.T) {
	broker := os.Getenv("TEST_MQTT_BROKER_URL")
	if broker == "" {
		t.Skip("TEST_MQTT_BROKER_URL not set, skipping MQTT test")
	}

	received := make(chan []byte, 1)
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("beacon-mirror-test-sub")
	sub := mqtt.NewClient(opts)
	token := sub.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer sub.Disconnect(100)

	token = sub.Subscribe(MQTTTopic("scr_mqtt"), 1, func(_ mqtt.Client, msg mqtt.Message) {
		received <- msg.Payload()
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	mirror, err := NewMQTTMirror(broker, "beacon-mirror-test-pub")
	require.NoError(t, err)
	defer mirror.Close()

	require.NoError(t, mirror.Publish(context.Background(), update("scr_mqtt", model.ActionContentUpdate)))

	select {
	case payload := <-received:
		var evt model.PushEvent
		require.NoError(t, json.Unmarshal(payload, &evt))
		assert.Equal(t, model.EventScreenUpdate, evt.Type)
		assert.Equal(t, model.ActionContentUpdate, evt.Action)
	case <-time.After(5 * time.Second):
		t.Fatal("no message on the mirrored topic")
	}
}

func TestNATSMirrorPublishes(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set, skipping NATS test")
	}

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync(NATSSubject("scr_nats"))
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	mirror, err := NewNATSMirror(url)
	require.NoError(t, err)
	defer mirror.Close()

	require.NoError(t, mirror.Publish(context.Background(), update("scr_nats", model.ActionNameUpdate)))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	var evt model.PushEvent
	require.NoError(t, json.Unmarshal(msg.Data, &evt))
	assert.Equal(t, "scr_nats", evt.ScreenID)
	assert.Equal(t, model.ActionNameUpdate, evt.Action)
}
