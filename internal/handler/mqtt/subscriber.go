package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/service"
)

const (
	// Идентификатор устройства - второй сегмент топика
	gpsTopicPattern   = "sikad/+/gps"
	eventTopicPattern = "sikad/+/event"
)

type gpsMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

type eventMessage struct {
	Type string `json:"type"`
}

// Subscriber подписывается на фид телеметрии и прогоняет сообщения через ядро.
// Ошибка обработки одного сообщения логируется и не влияет на остальные.
type Subscriber struct {
	client    mqtt.Client
	telemetry service.Telemetry
	logger    *logrus.Logger
}

func NewSubscriber(client mqtt.Client, telemetry service.Telemetry, logger *logrus.Logger) *Subscriber {
	return &Subscriber{
		client:    client,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Start подписывается на топики позиций и событий устройств
func (s *Subscriber) Start() error {
	if token := s.client.Subscribe(gpsTopicPattern, 1, s.handleGPS); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	s.logger.WithField("topic", gpsTopicPattern).Info("Subscribed to GPS feed")

	if token := s.client.Subscribe(eventTopicPattern, 1, s.handleEvent); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	s.logger.WithField("topic", eventTopicPattern).Info("Subscribed to device event feed")
	return nil
}

func (s *Subscriber) handleGPS(_ mqtt.Client, msg mqtt.Message) {
	log := s.logger.WithField("topic", msg.Topic())

	deviceID := deviceFromTopic(msg.Topic())
	var raw gpsMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.WithError(err).Warn("Dropping invalid GPS payload")
		return
	}
	// Нулевые координаты считаем отсутствующими, как и исходный трекер
	if raw.Latitude == 0 || raw.Longitude == 0 {
		log.Warn("Dropping GPS payload without coordinates")
		return
	}

	observedAt := time.Now()
	if raw.Timestamp > 0 {
		observedAt = time.Unix(raw.Timestamp, 0)
	}

	report := &models.PositionReport{
		DeviceID:   deviceID,
		Latitude:   raw.Latitude,
		Longitude:  raw.Longitude,
		ObservedAt: observedAt,
	}
	if _, err := s.telemetry.ProcessReport(context.Background(), report); err != nil {
		log.WithError(err).Warn("Failed to process position report")
	}
}

func (s *Subscriber) handleEvent(_ mqtt.Client, msg mqtt.Message) {
	log := s.logger.WithField("topic", msg.Topic())

	deviceID := deviceFromTopic(msg.Topic())
	var raw eventMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.WithError(err).Warn("Dropping invalid event payload")
		return
	}

	var kind models.AlertKind
	switch raw.Type {
	case "movement":
		kind = models.AlertMovement
	case "crash":
		kind = models.AlertCrash
	default:
		log.WithField("type", raw.Type).Warn("Dropping event of unknown type")
		return
	}

	if _, err := s.telemetry.HandleEvent(context.Background(), deviceID, kind); err != nil {
		log.WithError(err).Warn("Failed to process device event")
	}
}

// deviceFromTopic извлекает идентификатор устройства из топика sikad/<id>/...
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
