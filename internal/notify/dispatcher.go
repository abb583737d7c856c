package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TIPmigs/sikad-server/internal/config"
	"github.com/TIPmigs/sikad-server/internal/metrics"
	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mock_dispatcher.go -package=mocks

// RecipientDirectory определяет контракт справочника получателей
type RecipientDirectory interface {
	ListRecipients(ctx context.Context) ([]models.Contact, error)
}

// Transport определяет контракт внешнего транспорта уведомлений
type Transport interface {
	Send(ctx context.Context, recipient, message string) error
}

// Outcome - исход доставки одному получателю
type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomeFailed        Outcome = "failed"
	OutcomeRetriedSent   Outcome = "retried_then_sent"
	OutcomeRetriedFailed Outcome = "retried_then_failed"
)

// RecipientOutcome - результат доставки одному получателю. Эфемерный,
// используется вызывающей стороной и тестами вместо разбора логов.
type RecipientOutcome struct {
	Recipient string
	Outcome   Outcome
	Ref       string
	Err       string
}

// Dispatcher рассылает оповещение всем получателям справочника.
// Отправки идут параллельно с ограничением, каждая получает максимум
// один повтор после фиксированной паузы и только на временном сбое.
type Dispatcher struct {
	directory     RecipientDirectory
	transport     Transport
	logger        *logrus.Logger
	maxConcurrent int
	retryBackoff  time.Duration
	sendTimeout   time.Duration
}

func NewDispatcher(directory RecipientDirectory, transport Transport, logger *logrus.Logger, cfg *config.Config) *Dispatcher {
	maxConcurrent := cfg.SMSMaxConcurrent
	if maxConcurrent < 1 {
		// SetLimit(0) заблокировал бы все отправки
		maxConcurrent = 1
	}
	return &Dispatcher{
		directory:     directory,
		transport:     transport,
		logger:        logger,
		maxConcurrent: maxConcurrent,
		retryBackoff:  cfg.SMSRetryBackoff,
		sendTimeout:   cfg.SMSTimeout,
	}
}

// Dispatch отправляет оповещение каждому активному получателю и возвращает
// исход по каждому из них. Частичный сбой по получателю не прерывает и не
// проваливает рассылку остальным. Пустой справочник - не ошибка.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) ([]RecipientOutcome, error) {
	log := d.logger.WithFields(logrus.Fields{
		"service":   "dispatcher",
		"device_id": alert.DeviceID,
		"kind":      alert.Kind,
	})

	contacts, err := d.directory.ListRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify: could not resolve recipients: %w", err)
	}
	if len(contacts) == 0 {
		log.Warn("Recipient directory is empty, skipping dispatch")
		return []RecipientOutcome{}, nil
	}

	ref := correlationTag()
	message := renderMessage(alert, ref)
	log = log.WithField("ref", ref)

	outcomes := make([]RecipientOutcome, len(contacts))
	g := new(errgroup.Group)
	g.SetLimit(d.maxConcurrent)
	for i, contact := range contacts {
		i, contact := i, contact
		g.Go(func() error {
			outcomes[i] = d.sendOne(ctx, contact.Phone, message, ref)
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, oc := range outcomes {
		metrics.SMSDeliveries.WithLabelValues(string(oc.Outcome)).Inc()
		if oc.Outcome == OutcomeSent || oc.Outcome == OutcomeRetriedSent {
			sent++
		}
	}
	log.WithFields(logrus.Fields{"recipients": len(contacts), "sent": sent}).Info("Dispatch completed")
	return outcomes, nil
}

// sendOne доставляет сообщение одному получателю с одним повтором на
// временном сбое. Пауза перед повтором локальна для этого получателя.
func (d *Dispatcher) sendOne(ctx context.Context, recipient, message, ref string) RecipientOutcome {
	log := d.logger.WithFields(logrus.Fields{
		"service":   "dispatcher",
		"recipient": recipient,
		"ref":       ref,
	})

	err := d.sendWithTimeout(ctx, recipient, message)
	if err == nil {
		return RecipientOutcome{Recipient: recipient, Outcome: OutcomeSent, Ref: ref}
	}

	var transient *TransientError
	if !errors.As(err, &transient) {
		log.WithError(err).Error("SMS delivery failed")
		return RecipientOutcome{Recipient: recipient, Outcome: OutcomeFailed, Ref: ref, Err: err.Error()}
	}

	log.WithError(err).Warnf("Transient SMS failure, retrying in %v", d.retryBackoff)
	select {
	case <-time.After(d.retryBackoff):
	case <-ctx.Done():
		// Повтор так и не был предпринят
		return RecipientOutcome{Recipient: recipient, Outcome: OutcomeFailed, Ref: ref, Err: ctx.Err().Error()}
	}

	// Ровно один повтор: второй сбой терминален вне зависимости от причины
	if err := d.sendWithTimeout(ctx, recipient, message); err != nil {
		log.WithError(err).Error("SMS delivery failed after retry")
		return RecipientOutcome{Recipient: recipient, Outcome: OutcomeRetriedFailed, Ref: ref, Err: err.Error()}
	}
	return RecipientOutcome{Recipient: recipient, Outcome: OutcomeRetriedSent, Ref: ref}
}

// sendWithTimeout ограничивает длительность одного исходящего вызова
func (d *Dispatcher) sendWithTimeout(ctx context.Context, recipient, message string) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.transport.Send(sendCtx, recipient, message)
}

// renderMessage выбирает шаблон сообщения по виду оповещения
func renderMessage(alert *models.Alert, ref string) string {
	switch alert.Kind {
	case models.AlertMovement:
		return fmt.Sprintf("SIKAD ALERT: movement detected on parked bike %s. [ref:%s]", alert.DeviceID, ref)
	case models.AlertCrash:
		return fmt.Sprintf("SIKAD ALERT: possible crash detected for bike %s. Please check on the rider. [ref:%s]", alert.DeviceID, ref)
	default:
		return fmt.Sprintf("SIKAD ALERT: bike %s has left the authorized area. [ref:%s]", alert.DeviceID, ref)
	}
}

// correlationTag - случайная метка для сопоставления рассылки в логах оператора
func correlationTag() string {
	return uuid.NewString()[:8]
}
