package service

import (
	"context"
	"sync"
	"time"

	"watopic/internal/constants"
	"watopic/internal/privacy"
	"watopic/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
)

// PresenceRelay mirrors workspace typing activity onto source conversations.
// Each chat holds at most one pending pause timer; a new composing signal
// restarts it instead of stacking another.
type PresenceRelay struct {
	client types.Client
	pause  time.Duration
	logger *logrus.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewPresenceRelay(client types.Client, pause time.Duration, logger *logrus.Logger) *PresenceRelay {
	if pause <= 0 {
		pause = constants.DefaultPresencePause
	}
	return &PresenceRelay{
		client: client,
		pause:  pause,
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

// NotifyComposing sends a composing signal for the chat and schedules the
// matching paused signal. Send failures are logged, not surfaced; presence
// is best effort.
func (p *PresenceRelay) NotifyComposing(ctx context.Context, chatJID string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if t, ok := p.timers[chatJID]; ok {
		t.Stop()
	}
	p.timers[chatJID] = time.AfterFunc(p.pause, func() {
		p.sendPaused(chatJID)
	})
	p.mu.Unlock()

	if err := p.client.SendPresence(ctx, chatJID, types.PresenceComposing); err != nil {
		p.logger.WithError(err).WithField("chat", privacy.MaskJID(chatJID)).Debug("Failed to send composing presence")
	}
}

func (p *PresenceRelay) sendPaused(chatJID string) {
	p.mu.Lock()
	delete(p.timers, chatJID)
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultHTTPTimeoutSec)*time.Second)
	defer cancel()

	if err := p.client.SendPresence(ctx, chatJID, types.PresencePaused); err != nil {
		p.logger.WithError(err).WithField("chat", privacy.MaskJID(chatJID)).Debug("Failed to send paused presence")
	}
}

// Stop cancels every pending pause timer. Further notifications are ignored.
func (p *PresenceRelay) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for chatJID, t := range p.timers {
		t.Stop()
		delete(p.timers, chatJID)
	}
}
