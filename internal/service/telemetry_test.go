package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/notify"
	"github.com/TIPmigs/sikad-server/internal/service"
	"github.com/TIPmigs/sikad-server/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type telemetryFixture struct {
	repo       *mocks.MockGeofenceRepository
	alerts     *mocks.MockAlertRepository
	positions  *mocks.MockPositionStore
	dispatcher *mocks.MockAlertDispatcher
	svc        service.Telemetry
	logger     *logrus.Logger
}

func newTelemetryFixture(t *testing.T) *telemetryFixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := quietLogger()
	f := &telemetryFixture{
		repo:       mocks.NewMockGeofenceRepository(ctrl),
		alerts:     mocks.NewMockAlertRepository(ctrl),
		positions:  mocks.NewMockPositionStore(ctrl),
		dispatcher: mocks.NewMockAlertDispatcher(ctrl),
		logger:     logger,
	}
	f.svc = service.NewTelemetryService(
		service.NewFenceCache(f.repo, time.Minute, logger),
		service.NewCrossingTracker(logger, 12*time.Hour, 10000),
		service.NewEventTracker(service.EventCooldown),
		f.alerts,
		f.positions,
		f.dispatcher,
		logger,
	)
	return f
}

func TestProcessReport_OutsideFenceFiresAlert(t *testing.T) {
	// Подготовка
	f := newTelemetryFixture(t)
	report := &models.PositionReport{DeviceID: "bike-1", Latitude: 50, Longitude: 50}

	// Ожидания
	f.repo.EXPECT().ListActive(gomock.Any()).Return([]models.Geofence{squareGeofence("campus")}, nil)
	f.positions.EXPECT().SaveLatest(gomock.Any(), report).Return(nil)
	f.alerts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return([]notify.RecipientOutcome{
		{Recipient: "+639171234567", Outcome: notify.OutcomeSent},
	}, nil)

	// Действие
	result, err := f.svc.ProcessReport(context.Background(), report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeAlert, result.Decision.Outcome)
	require.NotNil(t, result.Alert)
	assert.Equal(t, models.AlertGeofenceCross, result.Alert.Kind)
	assert.Equal(t, "bike-1", result.Alert.DeviceID)
	assert.Len(t, result.Outcomes, 1)
}

func TestProcessReport_InsideFenceIsQuiet(t *testing.T) {
	// Подготовка
	f := newTelemetryFixture(t)
	report := &models.PositionReport{DeviceID: "bike-1", Latitude: 5, Longitude: 5}

	// Ожидания: ни записи оповещения, ни рассылки
	f.repo.EXPECT().ListActive(gomock.Any()).Return([]models.Geofence{squareGeofence("campus")}, nil)
	f.positions.EXPECT().SaveLatest(gomock.Any(), report).Return(nil)

	// Действие
	result, err := f.svc.ProcessReport(context.Background(), report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeInside, result.Decision.Outcome)
	assert.Equal(t, "campus", result.MatchedFence)
	assert.Nil(t, result.Alert)
}

func TestProcessReport_MalformedReportDropped(t *testing.T) {
	// Подготовка: ни один из портов не должен быть тронут
	f := newTelemetryFixture(t)

	cases := []*models.PositionReport{
		{DeviceID: "", Latitude: 5, Longitude: 5},
		{DeviceID: "bike-1", Latitude: 91, Longitude: 5},
		{DeviceID: "bike-1", Latitude: 5, Longitude: -181},
	}

	for _, report := range cases {
		// Действие
		result, err := f.svc.ProcessReport(context.Background(), report)

		// Проверки
		assert.ErrorIs(t, err, service.ErrMalformedReport)
		assert.Nil(t, result)
	}
}

func TestProcessReport_SecondExitDoesNotRealert(t *testing.T) {
	// Подготовка
	f := newTelemetryFixture(t)
	report := &models.PositionReport{DeviceID: "bike-1", Latitude: 50, Longitude: 50}

	// Ожидания: кеш геозон ходит в хранилище один раз, оповещение одно
	f.repo.EXPECT().ListActive(gomock.Any()).Return([]models.Geofence{squareGeofence("campus")}, nil).Times(1)
	f.positions.EXPECT().SaveLatest(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.alerts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	// Действие
	first, err := f.svc.ProcessReport(context.Background(), report)
	require.NoError(t, err)
	second, err := f.svc.ProcessReport(context.Background(), report)
	require.NoError(t, err)

	// Проверки
	assert.Equal(t, service.OutcomeAlert, first.Decision.Outcome)
	assert.Equal(t, service.OutcomeStillOutside, second.Decision.Outcome)
	assert.Nil(t, second.Alert)
}

func TestProcessReport_DispatchErrorDoesNotFailReport(t *testing.T) {
	// Подготовка
	f := newTelemetryFixture(t)
	report := &models.PositionReport{DeviceID: "bike-1", Latitude: 50, Longitude: 50}

	// Ожидания
	f.repo.EXPECT().ListActive(gomock.Any()).Return([]models.Geofence{squareGeofence("campus")}, nil)
	f.positions.EXPECT().SaveLatest(gomock.Any(), report).Return(nil)
	f.alerts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil, errors.New("directory unavailable"))

	// Действие
	result, err := f.svc.ProcessReport(context.Background(), report)

	// Проверки: сбой персиста и рассылки не роняет обработку отчета
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeAlert, result.Decision.Outcome)
	require.NotNil(t, result.Alert)
}

func TestProcessReport_SnapshotErrorTolerated(t *testing.T) {
	// Подготовка
	f := newTelemetryFixture(t)
	report := &models.PositionReport{DeviceID: "bike-1", Latitude: 5, Longitude: 5}

	// Ожидания
	f.repo.EXPECT().ListActive(gomock.Any()).Return([]models.Geofence{squareGeofence("campus")}, nil)
	f.positions.EXPECT().SaveLatest(gomock.Any(), report).Return(errors.New("redis: connection pool timeout"))

	// Действие
	result, err := f.svc.ProcessReport(context.Background(), report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeInside, result.Decision.Outcome)
}

func TestHandleEvent_CrashFiresThenCoolsDown(t *testing.T) {
	// Подготовка
	f := newTelemetryFixture(t)

	// Ожидания: второе событие внутри окна не доходит до портов
	f.alerts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	// Действие
	first, err := f.svc.HandleEvent(context.Background(), "bike-1", models.AlertCrash)
	require.NoError(t, err)
	second, err := f.svc.HandleEvent(context.Background(), "bike-1", models.AlertCrash)
	require.NoError(t, err)

	// Проверки
	assert.Equal(t, service.OutcomeAlert, first.Decision.Outcome)
	require.NotNil(t, first.Alert)
	assert.Equal(t, models.AlertCrash, first.Alert.Kind)
	assert.Equal(t, service.OutcomeSuppressed, second.Decision.Outcome)
	assert.Nil(t, second.Alert)
}

func TestHandleEvent_UnsupportedKind(t *testing.T) {
	// Подготовка
	f := newTelemetryFixture(t)

	// Действие
	result, err := f.svc.HandleEvent(context.Background(), "bike-1", models.AlertGeofenceCross)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, result)
}
