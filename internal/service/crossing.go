package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// CooldownLong - подавление после срабатывания оповещения
	CooldownLong = 5 * time.Minute
	// CooldownShort - подавление после подтвержденного возврата в зону
	CooldownShort = 1 * time.Minute

	// Количество последовательных подтверждений "внутри" для снятия эпизода
	insideConfirmThreshold = 3
)

// CrossingOutcome - исход одного наблюдения машины состояний
type CrossingOutcome string

const (
	// OutcomeAlert - устройство покинуло зону, оповещение должно быть отправлено
	OutcomeAlert CrossingOutcome = "alert"
	// OutcomeSuppressed - устройство вне зоны, но действует cooldown
	OutcomeSuppressed CrossingOutcome = "suppressed_cooldown"
	// OutcomeStillOutside - эпизод уже активен, повторное оповещение не отправляется
	OutcomeStillOutside CrossingOutcome = "still_outside"
	// OutcomeReturning - эпизод активен, устройство внутри, подтверждений пока мало
	OutcomeReturning CrossingOutcome = "returning"
	// OutcomeCleared - эпизод снят, cooldown понижен до короткого
	OutcomeCleared CrossingOutcome = "cleared"
	// OutcomeInside - устройство внутри зоны, эпизода нет
	OutcomeInside CrossingOutcome = "inside"
)

// Decision - структурированный результат наблюдения, по нему оркестратор
// и тесты судят о поведении машины без разбора логов.
type Decision struct {
	Outcome             CrossingOutcome
	InsideConfirmations int
	Cooldown            time.Duration
}

// crossingState - состояние пересечения границы для одного устройства.
// Нулевой lastAlertSentAt означает "оповещений еще не было": первый выход
// из зоны никогда не блокируется cooldown-ом.
type crossingState struct {
	mu                  sync.Mutex
	lastAlertSentAt     time.Time
	alertActive         bool
	insideConfirmations int
	cooldown            time.Duration
	lastSeen            time.Time
}

// CrossingTracker - реестр машин состояний пересечения, по одной на устройство.
// Мьютекс реестра защищает только саму мапу; переходы каждого устройства
// сериализуются его собственным мьютексом, глобальной блокировки переходов нет.
type CrossingTracker struct {
	logger     *logrus.Logger
	idleTTL    time.Duration
	maxDevices int

	mu      sync.Mutex
	devices map[string]*crossingState
}

func NewCrossingTracker(logger *logrus.Logger, idleTTL time.Duration, maxDevices int) *CrossingTracker {
	return &CrossingTracker{
		logger:     logger,
		idleTTL:    idleTTL,
		maxDevices: maxDevices,
		devices:    make(map[string]*crossingState),
	}
}

// Observe продвигает машину состояний устройства по результату вхождения
func (t *CrossingTracker) Observe(deviceID string, inside bool, now time.Time) Decision {
	st := t.state(deviceID, now)

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.alertActive {
		if inside {
			return Decision{Outcome: OutcomeInside, Cooldown: st.cooldown}
		}
		if st.lastAlertSentAt.IsZero() || now.Sub(st.lastAlertSentAt) > st.cooldown {
			st.lastAlertSentAt = now
			st.alertActive = true
			st.cooldown = CooldownLong
			st.insideConfirmations = 0
			return Decision{Outcome: OutcomeAlert, Cooldown: st.cooldown}
		}
		return Decision{Outcome: OutcomeSuppressed, Cooldown: st.cooldown}
	}

	if !inside {
		// Подтверждения должны быть последовательными
		st.insideConfirmations = 0
		return Decision{Outcome: OutcomeStillOutside, Cooldown: st.cooldown}
	}

	st.insideConfirmations++
	if st.insideConfirmations >= insideConfirmThreshold {
		st.alertActive = false
		st.insideConfirmations = 0
		// Устройство подтвердило возврат - перевзводим быстрее
		st.cooldown = CooldownShort
		return Decision{Outcome: OutcomeCleared, Cooldown: st.cooldown}
	}
	return Decision{Outcome: OutcomeReturning, InsideConfirmations: st.insideConfirmations, Cooldown: st.cooldown}
}

// state возвращает состояние устройства, создавая его при первом отчете
func (t *CrossingTracker) state(deviceID string, now time.Time) *crossingState {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.devices[deviceID]
	if !ok {
		if t.maxDevices > 0 && len(t.devices) >= t.maxDevices {
			t.evictOldestLocked()
		}
		st = &crossingState{cooldown: CooldownLong}
		t.devices[deviceID] = st
	}
	st.lastSeen = now
	return st
}

// TrackedDevices возвращает число устройств в реестре
func (t *CrossingTracker) TrackedDevices() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.devices)
}

// StartJanitor запускает горутину, вычищающую простаивающие устройства.
// Без вычистки реестр растет неограниченно вместе с парком устройств.
func (t *CrossingTracker) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := t.sweep(time.Now()); evicted > 0 {
					t.logger.WithField("evicted", evicted).Info("Evicted idle device states")
				}
			}
		}
	}()
}

// sweep удаляет устройства, простаивающие дольше idleTTL
func (t *CrossingTracker) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, st := range t.devices {
		if now.Sub(st.lastSeen) > t.idleTTL {
			delete(t.devices, id)
			evicted++
		}
	}
	return evicted
}

// evictOldestLocked удаляет наиболее давно не отчитывавшееся устройство.
// Вызывается под мьютексом реестра при достижении лимита.
func (t *CrossingTracker) evictOldestLocked() {
	var oldestID string
	var oldestSeen time.Time
	for id, st := range t.devices {
		if oldestID == "" || st.lastSeen.Before(oldestSeen) {
			oldestID = id
			oldestSeen = st.lastSeen
		}
	}
	if oldestID != "" {
		delete(t.devices, oldestID)
	}
}
