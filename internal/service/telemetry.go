package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TIPmigs/sikad-server/internal/geo"
	"github.com/TIPmigs/sikad-server/internal/metrics"
	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/notify"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// GeofenceRepository определяет контракт адаптера хранилища полигонов
type GeofenceRepository interface {
	ListActive(ctx context.Context) ([]models.Geofence, error)
}

// AlertRepository определяет контракт для записей об оповещениях
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
}

// PositionStore определяет контракт side-channel последних позиций
type PositionStore interface {
	SaveLatest(ctx context.Context, report *models.PositionReport) error
	Latest(ctx context.Context, deviceID string) (*models.PositionReport, error)
}

// AlertDispatcher определяет контракт отправки оповещений получателям
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert) ([]notify.RecipientOutcome, error)
}

// Telemetry определяет контракт ядра обработки телеметрии
type Telemetry interface {
	ProcessReport(ctx context.Context, report *models.PositionReport) (*ReportResult, error)
	HandleEvent(ctx context.Context, deviceID string, kind models.AlertKind) (*ReportResult, error)
}

// ErrMalformedReport возвращается для отчета без координат или устройства.
// Такой отчет отбрасывается, состояние устройства не затрагивается.
var ErrMalformedReport = errors.New("service: malformed position report")

// ReportResult - структурированный итог обработки одного отчета или события
type ReportResult struct {
	Decision     Decision
	MatchedFence string
	Alert        *models.Alert
	Outcomes     []notify.RecipientOutcome
}

type telemetryService struct {
	fences     *FenceCache
	crossings  *CrossingTracker
	events     *EventTracker
	alerts     AlertRepository
	positions  PositionStore
	dispatcher AlertDispatcher
	logger     *logrus.Logger
}

func NewTelemetryService(
	fences *FenceCache,
	crossings *CrossingTracker,
	events *EventTracker,
	alerts AlertRepository,
	positions PositionStore,
	dispatcher AlertDispatcher,
	logger *logrus.Logger,
) Telemetry {
	return &telemetryService{
		fences:     fences,
		crossings:  crossings,
		events:     events,
		alerts:     alerts,
		positions:  positions,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ProcessReport прогоняет один отчет о позиции через оценку вхождения и машину
// состояний устройства. Любой сбой деградирует только этот отчет: обработка
// других устройств и следующих отчетов этого устройства не блокируется.
func (s *telemetryService) ProcessReport(ctx context.Context, report *models.PositionReport) (*ReportResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "telemetry",
		"method":    "ProcessReport",
		"device_id": report.DeviceID,
	})

	if report.DeviceID == "" ||
		report.Latitude < -90 || report.Latitude > 90 ||
		report.Longitude < -180 || report.Longitude > 180 {
		log.Warn("Dropping malformed position report")
		metrics.ReportsProcessed.WithLabelValues("dropped").Inc()
		return nil, ErrMalformedReport
	}
	if report.ObservedAt.IsZero() {
		report.ObservedAt = time.Now()
	}

	// Side-channel: снимок последней позиции, ошибка не влияет на обработку
	if err := s.positions.SaveLatest(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to save latest position snapshot")
	}

	fences := s.fences.ActiveFences(ctx)
	point := geo.Point{Lat: report.Latitude, Lon: report.Longitude}
	inside, match := InsideAny(point, fences)

	decision := s.crossings.Observe(report.DeviceID, inside, time.Now())
	result := &ReportResult{Decision: decision}
	if match != nil {
		result.MatchedFence = match.Geofence.Name
	}

	switch decision.Outcome {
	case OutcomeAlert:
		alert := &models.Alert{
			DeviceID: report.DeviceID,
			Kind:     models.AlertGeofenceCross,
			Message:  fmt.Sprintf("Device %s has left the authorized area", report.DeviceID),
		}
		s.emitAlert(ctx, log, alert, result)
	case OutcomeSuppressed:
		log.WithField("cooldown", decision.Cooldown.String()).Info("Geofence alert suppressed, still in cooldown")
	case OutcomeStillOutside:
		log.Debug("Device still out of bounds, alert episode already active")
	case OutcomeCleared:
		log.WithField("cooldown", decision.Cooldown.String()).Info("Device confirmed back inside, alert episode cleared")
	}

	metrics.ReportsProcessed.WithLabelValues("ok").Inc()
	return result, nil
}

// HandleEvent обрабатывает дискретное событие устройства (движение, авария)
func (s *telemetryService) HandleEvent(ctx context.Context, deviceID string, kind models.AlertKind) (*ReportResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "telemetry",
		"method":    "HandleEvent",
		"device_id": deviceID,
		"kind":      kind,
	})

	if kind != models.AlertMovement && kind != models.AlertCrash {
		return nil, fmt.Errorf("service: unsupported event kind %q", kind)
	}

	result := &ReportResult{}
	if !s.events.Observe(deviceID, kind, time.Now()) {
		log.Info("Device event suppressed, still in cooldown")
		result.Decision = Decision{Outcome: OutcomeSuppressed, Cooldown: s.events.cooldown}
		return result, nil
	}

	var message string
	switch kind {
	case models.AlertMovement:
		message = fmt.Sprintf("Movement detected on parked device %s", deviceID)
	case models.AlertCrash:
		message = fmt.Sprintf("Possible crash detected for device %s", deviceID)
	}

	result.Decision = Decision{Outcome: OutcomeAlert}
	alert := &models.Alert{
		DeviceID: deviceID,
		Kind:     kind,
		Message:  message,
	}
	s.emitAlert(ctx, log, alert, result)
	return result, nil
}

// emitAlert персистит запись об оповещении и запускает рассылку.
// Ошибки обоих шагов логируются и не эскалируются: частичный сбой
// оповещения не должен ронять обработку отчета.
func (s *telemetryService) emitAlert(ctx context.Context, log *logrus.Entry, alert *models.Alert, result *ReportResult) {
	if err := s.alerts.Create(ctx, alert); err != nil {
		log.WithError(err).Error("Failed to persist alert record")
	}

	outcomes, err := s.dispatcher.Dispatch(ctx, alert)
	if err != nil {
		log.WithError(err).Error("Failed to dispatch notifications")
	}

	result.Alert = alert
	result.Outcomes = outcomes
	metrics.AlertsFired.WithLabelValues(string(alert.Kind)).Inc()
	log.WithField("recipients", len(outcomes)).Info("Alert fired")
}
