package notify_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TIPmigs/sikad-server/internal/config"
	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/notify"
	"github.com/TIPmigs/sikad-server/internal/notify/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type dispatcherFixture struct {
	directory  *mocks.MockRecipientDirectory
	transport  *mocks.MockTransport
	dispatcher *notify.Dispatcher
}

func newDispatcherFixtureWithConfig(t *testing.T, cfg *config.Config) *dispatcherFixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	f := &dispatcherFixture{
		directory: mocks.NewMockRecipientDirectory(ctrl),
		transport: mocks.NewMockTransport(ctrl),
	}
	f.dispatcher = notify.NewDispatcher(f.directory, f.transport, logger, cfg)
	return f
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	return newDispatcherFixtureWithConfig(t, &config.Config{
		SMSMaxConcurrent: 4,
		SMSRetryBackoff:  time.Millisecond,
		SMSTimeout:       time.Second,
	})
}

func crossAlert() *models.Alert {
	return &models.Alert{
		DeviceID: "bike-1",
		Kind:     models.AlertGeofenceCross,
		Message:  "Device bike-1 has left the authorized area",
	}
}

func contacts(phones ...string) []models.Contact {
	out := make([]models.Contact, len(phones))
	for i, p := range phones {
		out[i] = models.Contact{Name: "guard", Phone: p, Active: true}
	}
	return out
}

func TestDispatch_AllRecipientsSent(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)

	// Ожидания
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001", "+63917000002", "+63917000003"), nil)
	f.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, oc := range outcomes {
		assert.Equal(t, notify.OutcomeSent, oc.Outcome)
		assert.NotEmpty(t, oc.Ref)
	}
	// Все исходы одной рассылки несут общую метку
	assert.Equal(t, outcomes[0].Ref, outcomes[1].Ref)
	assert.Equal(t, outcomes[0].Ref, outcomes[2].Ref)
}

func TestDispatch_MessageCarriesKindTemplateAndRef(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)
	alert := &models.Alert{DeviceID: "bike-7", Kind: models.AlertCrash}

	var captured string
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001"), nil)
	f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, message string) error {
			captured = message
			return nil
		})

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), alert)

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, strings.HasPrefix(captured, "SIKAD ALERT:"))
	assert.Contains(t, captured, "bike-7")
	assert.Contains(t, captured, "crash")
	assert.Contains(t, captured, "[ref:"+outcomes[0].Ref+"]")
}

func TestDispatch_TransientFailureRetriedThenSent(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)

	// Ожидания: ровно две попытки, вторая успешна
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001"), nil)
	gomock.InOrder(
		f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).Return(&notify.TransientError{Reason: "status 503"}),
		f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).Return(nil),
	)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, notify.OutcomeRetriedSent, outcomes[0].Outcome)
	assert.Empty(t, outcomes[0].Err)
}

func TestDispatch_TransientFailureRetriedThenFailed(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)

	// Ожидания: повтор единственный, второй сбой терминален
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001"), nil)
	gomock.InOrder(
		f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).Return(&notify.TransientError{Reason: "telco issues"}),
		f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).Return(&notify.TransientError{Reason: "telco issues"}),
	)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, notify.OutcomeRetriedFailed, outcomes[0].Outcome)
	assert.NotEmpty(t, outcomes[0].Err)
}

func TestDispatch_PermanentFailureNotRetried(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)

	// Ожидания: терминальный сбой не порождает повторной попытки
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001"), nil)
	f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).
		Return(errors.New("notify: delivery rejected: invalid recipient")).Times(1)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, notify.OutcomeFailed, outcomes[0].Outcome)
	assert.Contains(t, outcomes[0].Err, "invalid recipient")
}

func TestDispatch_PartialFailureDoesNotBlockOthers(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)

	// Ожидания
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001", "+63917000002"), nil)
	f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).Return(errors.New("notify: delivery rejected"))
	f.transport.EXPECT().Send(gomock.Any(), "+63917000002", gomock.Any()).Return(nil)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки: исходы сохраняют порядок справочника
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, notify.OutcomeFailed, outcomes[0].Outcome)
	assert.Equal(t, notify.OutcomeSent, outcomes[1].Outcome)
}

func TestDispatch_RespectsConcurrencyLimit(t *testing.T) {
	// Подготовка: медленный транспорт фиксирует число одновременных отправок
	f := newDispatcherFixtureWithConfig(t, &config.Config{
		SMSMaxConcurrent: 2,
		SMSRetryBackoff:  time.Millisecond,
		SMSTimeout:       time.Second,
	})

	var inFlight, maxInFlight int64
	phones := make([]string, 8)
	for i := range phones {
		phones[i] = fmt.Sprintf("+6391700%04d", i)
	}

	// Ожидания
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts(phones...), nil)
	f.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string) error {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				seen := atomic.LoadInt64(&maxInFlight)
				if cur <= seen || atomic.CompareAndSwapInt64(&maxInFlight, seen, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return nil
		}).Times(8)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 8)
	assert.LessOrEqual(t, atomic.LoadInt64(&maxInFlight), int64(2))
}

func TestDispatch_ZeroConfigStillDelivers(t *testing.T) {
	// Подготовка: нулевой лимит не должен блокировать рассылку
	f := newDispatcherFixtureWithConfig(t, &config.Config{
		SMSRetryBackoff: time.Millisecond,
		SMSTimeout:      time.Second,
	})

	// Ожидания
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001"), nil)
	f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).Return(nil)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, notify.OutcomeSent, outcomes[0].Outcome)
}

func TestDispatch_CancelDuringBackoffNotCountedAsRetry(t *testing.T) {
	// Подготовка: длинная пауза перед повтором, контекст гаснет раньше
	f := newDispatcherFixtureWithConfig(t, &config.Config{
		SMSMaxConcurrent: 4,
		SMSRetryBackoff:  time.Minute,
		SMSTimeout:       time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ожидания: единственная попытка, повтора не было
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(contacts("+63917000001"), nil)
	f.transport.EXPECT().Send(gomock.Any(), "+63917000001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string) error {
			cancel()
			return &notify.TransientError{Reason: "status 503"}
		}).Times(1)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(ctx, crossAlert())

	// Проверки
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, notify.OutcomeFailed, outcomes[0].Outcome)
	assert.Contains(t, outcomes[0].Err, "context canceled")
}

func TestDispatch_EmptyDirectory(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)

	// Ожидания: транспорт не трогается
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return([]models.Contact{}, nil)

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.NoError(t, err)
	assert.NotNil(t, outcomes)
	assert.Empty(t, outcomes)
}

func TestDispatch_DirectoryError(t *testing.T) {
	// Подготовка
	f := newDispatcherFixture(t)

	// Ожидания
	f.directory.EXPECT().ListRecipients(gomock.Any()).Return(nil, errors.New("connection refused"))

	// Действие
	outcomes, err := f.dispatcher.Dispatch(context.Background(), crossAlert())

	// Проверки
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not resolve recipients")
	assert.Nil(t, outcomes)
}
