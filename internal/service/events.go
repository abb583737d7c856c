package service

import (
	"context"
	"sync"
	"time"

	"github.com/TIPmigs/sikad-server/internal/models"
)

// EventCooldown - окно подавления для дискретных событий (движение, авария)
const EventCooldown = 2 * time.Minute

// EventTracker - машины подавления для дискретных событий устройства.
// В отличие от пересечения границы здесь нет гистерезиса: событие вида
// подавляется, если такое же для этого устройства сработало внутри окна.
type EventTracker struct {
	cooldown time.Duration

	mu        sync.Mutex
	lastFired map[string]time.Time
}

func NewEventTracker(cooldown time.Duration) *EventTracker {
	return &EventTracker{
		cooldown:  cooldown,
		lastFired: make(map[string]time.Time),
	}
}

// Observe возвращает true, если событие должно сработать, и сбрасывает окно
func (t *EventTracker) Observe(deviceID string, kind models.AlertKind, now time.Time) bool {
	key := deviceID + "|" + string(kind)

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastFired[key]; ok && now.Sub(last) <= t.cooldown {
		return false
	}
	t.lastFired[key] = now
	return true
}

// TrackedWindows возвращает число активных окон подавления
func (t *EventTracker) TrackedWindows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastFired)
}

// StartJanitor запускает горутину, вычищающую истекшие окна подавления.
// Без вычистки мапа окон растет вместе с числом устройств, когда-либо
// отправивших событие.
func (t *EventTracker) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.sweep(time.Now())
			}
		}
	}()
}

// sweep удаляет окна, истекшие к моменту now: за пределами cooldown
// запись не несет информации, следующее событие сработает в любом случае.
func (t *EventTracker) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for key, last := range t.lastFired {
		if now.Sub(last) > t.cooldown {
			delete(t.lastFired, key)
			evicted++
		}
	}
	return evicted
}
