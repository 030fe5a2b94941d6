package service

import (
	"sync"

	"go.uber.org/zap"
)

// OAuthCompletedEvent announces the end of an upstream OAuth flow
type OAuthCompletedEvent struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
}

// ProgressEvent is one progress update from a long-running tool invocation
type ProgressEvent struct {
	Token   string  `json:"token"`
	Current float64 `json:"current"`
	Total   float64 `json:"total"`
	Message string  `json:"message"`
}

const subscriberBuffer = 16

// NotificationBus fans events out to subscribers. Publishing never
// blocks: a subscriber that falls behind loses events.
type NotificationBus struct {
	logger *zap.Logger

	mu           sync.RWMutex
	nextID       int
	oauthSubs    map[int]chan OAuthCompletedEvent
	progressSubs map[int]chan ProgressEvent
}

// NewNotificationBus creates a notification bus
func NewNotificationBus(logger *zap.Logger) *NotificationBus {
	return &NotificationBus{
		logger:       logger,
		oauthSubs:    make(map[int]chan OAuthCompletedEvent),
		progressSubs: make(map[int]chan ProgressEvent),
	}
}

// SubscribeOAuth registers an OAuth-completion subscriber
func (b *NotificationBus) SubscribeOAuth() (int, <-chan OAuthCompletedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ch := make(chan OAuthCompletedEvent, subscriberBuffer)
	b.oauthSubs[b.nextID] = ch
	return b.nextID, ch
}

// UnsubscribeOAuth removes a subscriber and closes its channel
func (b *NotificationBus) UnsubscribeOAuth(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.oauthSubs[id]; ok {
		delete(b.oauthSubs, id)
		close(ch)
	}
}

// PublishOAuthCompleted delivers an event to all OAuth subscribers
func (b *NotificationBus) PublishOAuthCompleted(event OAuthCompletedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.oauthSubs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropping oauth event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("provider", event.Provider),
			)
		}
	}
}

// SubscribeProgress registers a progress subscriber
func (b *NotificationBus) SubscribeProgress() (int, <-chan ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ch := make(chan ProgressEvent, subscriberBuffer)
	b.progressSubs[b.nextID] = ch
	return b.nextID, ch
}

// UnsubscribeProgress removes a progress subscriber
func (b *NotificationBus) UnsubscribeProgress(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.progressSubs[id]; ok {
		delete(b.progressSubs, id)
		close(ch)
	}
}

// PublishProgress delivers a progress event to all subscribers
func (b *NotificationBus) PublishProgress(event ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.progressSubs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropping progress event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("token", event.Token),
			)
		}
	}
}
