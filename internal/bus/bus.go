// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus carries fixes, origins, dataset reloads and zone signals over
// MQTT.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/gps"
	"github.com/relabs-tech/zone_tracker/internal/metrics"
	"github.com/relabs-tech/zone_tracker/internal/tracker"
)

const publishTimeout = 2 * time.Second

// Client is a connected MQTT client.
type Client struct {
	c      mqtt.Client
	broker string
}

// Connect dials broker and blocks until the session is up.
func Connect(broker, clientID string) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Str("client_id", clientID).Msg("Connected to MQTT broker")
	return &Client{c: client, broker: broker}, nil
}

// Close disconnects, waiting up to 250 ms for in-flight work.
func (c *Client) Close() {
	c.c.Disconnect(250)
}

func (c *Client) subscribe(topic string, handle func(payload []byte)) error {
	token := c.c.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handle(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Info().Str("topic", topic).Msg("Subscribed to MQTT topic")
	return nil
}

// Unsubscribe drops a topic subscription.
func (c *Client) Unsubscribe(topic string) error {
	token := c.c.Unsubscribe(topic)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, token.Error())
	}
	return nil
}

// SubscribeFixes decodes JSON fixes on topic and passes them to handle.
// Undecodable payloads are logged and dropped.
func (c *Client) SubscribeFixes(topic string, handle func(gps.Fix)) error {
	return c.subscribe(topic, func(payload []byte) {
		fix, err := DecodeFix(payload)
		if err != nil {
			metrics.Fixes.WithLabelValues("undecodable").Inc()
			log.Warn().Err(err).Str("topic", topic).Msg("GPS payload unmarshal error")
			return
		}
		handle(fix)
	})
}

// SubscribeOrigin decodes {"lat","lon"} payloads on topic.
func (c *Client) SubscribeOrigin(topic string, handle func(geo.Origin)) error {
	return c.subscribe(topic, func(payload []byte) {
		o, err := DecodeOrigin(payload)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Origin payload rejected")
			return
		}
		handle(o)
	})
}

// SubscribeDataset passes each non-empty payload on topic to handle as a
// dataset path.
func (c *Client) SubscribeDataset(topic string, handle func(path string)) error {
	return c.subscribe(topic, func(payload []byte) {
		path := DecodeDatasetPath(payload)
		if path == "" {
			log.Warn().Str("topic", topic).Msg("Empty dataset path ignored")
			return
		}
		handle(path)
	})
}

// SubscribeZone passes each zone payload on topic to handle.
func (c *Client) SubscribeZone(topic string, handle func(zone string)) error {
	return c.subscribe(topic, func(payload []byte) {
		handle(DecodeZone(payload))
	})
}

// PublishFix publishes fix as retained JSON.
func (c *Client) PublishFix(ctx context.Context, topic string, fix gps.Fix) error {
	payload, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}
	return c.publish(ctx, topic, payload)
}

func (c *Client) publish(ctx context.Context, topic string, payload []byte) error {
	token := c.c.Publish(topic, 0, true, payload)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish %s: %w", topic, errTimeout)
	}
}

var errTimeout = errors.New("timed out")

// ZonePublisher is a tracker sink that publishes the zone payload as
// retained plain text.
type ZonePublisher struct {
	client *Client
	topic  string
}

func NewZonePublisher(client *Client, topic string) *ZonePublisher {
	return &ZonePublisher{client: client, topic: topic}
}

func (p *ZonePublisher) Publish(ctx context.Context, s tracker.Signal) error {
	return p.client.publish(ctx, p.topic, EncodeZone(s))
}

// Enqueue hands fix to the tracker queue without blocking the MQTT
// callback. It reports false when the queue is full and the fix was
// dropped.
func Enqueue(queue chan<- gps.Fix, fix gps.Fix) bool {
	select {
	case queue <- fix:
		return true
	default:
		metrics.Fixes.WithLabelValues("dropped").Inc()
		return false
	}
}

// DecodeFix parses a JSON fix payload.
func DecodeFix(payload []byte) (gps.Fix, error) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		return gps.Fix{}, err
	}
	return f, nil
}

// DecodeOrigin parses {"lat","lon"}. A full fix payload is accepted too.
func DecodeOrigin(payload []byte) (geo.Origin, error) {
	var raw struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return geo.Origin{}, err
	}
	if raw.Lat == nil || raw.Lon == nil {
		return geo.Origin{}, errors.New("origin needs lat and lon")
	}
	return geo.Origin{Latitude: *raw.Lat, Longitude: *raw.Lon}, nil
}

// DecodeDatasetPath trims the payload; surrounding quotes are removed so a
// JSON string payload works as well as plain text.
func DecodeDatasetPath(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	return strings.TrimSpace(strings.Trim(s, `"`))
}

// EncodeZone is the wire form of a signal: the zone name or "None".
func EncodeZone(s tracker.Signal) []byte {
	return []byte(s.Payload)
}

// DecodeZone is the inverse of EncodeZone.
func DecodeZone(payload []byte) string {
	return strings.TrimSpace(string(payload))
}
