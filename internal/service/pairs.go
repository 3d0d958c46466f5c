package service

import (
	"sync"
	"time"

	"watopic/internal/constants"
	"watopic/internal/models"
)

// PairTracker holds the in-memory correlation between workspace messages
// and source messages. The table is bounded: the oldest pair is evicted at
// capacity, and pairs older than the TTL drop out during insert sweeps.
// Losing a pair degrades replies to plain sends, never to an error.
type PairTracker struct {
	mu       sync.RWMutex
	byTopic  map[int64]*models.MessagePair
	bySource map[string]*models.MessagePair
	order    []int64
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func NewPairTracker(capacity int, ttl time.Duration) *PairTracker {
	if capacity <= 0 {
		capacity = constants.MaxTrackedPairs
	}
	if ttl <= 0 {
		ttl = constants.PairTTL
	}
	return &PairTracker{
		byTopic:  make(map[int64]*models.MessagePair),
		bySource: make(map[string]*models.MessagePair),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Record stores a delivered pair, evicting expired and overflow entries.
func (t *PairTracker) Record(topicMessageID int64, chatMessageID, chatJID string, dir models.Direction) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.expireLocked(now)

	// Replacing an existing pair must also retire its eviction slot, or a
	// later capacity pop on the stale slot would drop the live replacement.
	if old, ok := t.byTopic[topicMessageID]; ok {
		delete(t.bySource, old.ChatMessageID)
		t.removeOrderLocked(topicMessageID)
	}

	pair := &models.MessagePair{
		TopicMessageID: topicMessageID,
		ChatMessageID:  chatMessageID,
		ChatJID:        chatJID,
		Direction:      dir,
		RecordedAt:     now,
	}
	t.byTopic[topicMessageID] = pair
	t.bySource[chatMessageID] = pair
	t.order = append(t.order, topicMessageID)

	for len(t.byTopic) > t.capacity && len(t.order) > 0 {
		t.evictOldestLocked()
	}
}

// FindByTopicMessage resolves the source message a given workspace message
// was bridged from, or nil when the pair is unknown or expired.
func (t *PairTracker) FindByTopicMessage(topicMessageID int64) *models.MessagePair {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pair, ok := t.byTopic[topicMessageID]
	if !ok || t.now().Sub(pair.RecordedAt) > t.ttl {
		return nil
	}
	return pair
}

// FindBySourceMessage resolves the workspace message a given source message
// was bridged to, or nil when unknown or expired.
func (t *PairTracker) FindBySourceMessage(chatMessageID string) *models.MessagePair {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pair, ok := t.bySource[chatMessageID]
	if !ok || t.now().Sub(pair.RecordedAt) > t.ttl {
		return nil
	}
	return pair
}

// Len reports the number of live pairs.
func (t *PairTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byTopic)
}

// Clear drops every tracked pair.
func (t *PairTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTopic = make(map[int64]*models.MessagePair)
	t.bySource = make(map[string]*models.MessagePair)
	t.order = nil
}

func (t *PairTracker) expireLocked(now time.Time) {
	for len(t.order) > 0 {
		oldest, ok := t.byTopic[t.order[0]]
		if ok && now.Sub(oldest.RecordedAt) <= t.ttl {
			return
		}
		t.evictOldestLocked()
	}
}

func (t *PairTracker) removeOrderLocked(topicMessageID int64) {
	for i, id := range t.order {
		if id == topicMessageID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func (t *PairTracker) evictOldestLocked() {
	id := t.order[0]
	t.order = t.order[1:]
	if pair, ok := t.byTopic[id]; ok {
		delete(t.byTopic, id)
		delete(t.bySource, pair.ChatMessageID)
	}
}
