package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
	"github.com/AnshRaj112/visitrace-backend/internal/store"
)

// Publisher fans a stored event out to live viewers.
type Publisher interface {
	Publish(ctx context.Context, event models.RequestEvent) error
}

// RequestInput is the request metadata captured by the tracking middleware.
type RequestInput struct {
	IP           string
	URL          string
	Method       string
	UserAgent    string
	VisitorToken string
	Host         string
}

// RequestLogger appends one RequestEvent per tracked request.
type RequestLogger struct {
	store     store.RequestStore
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time

	pending sync.WaitGroup
}

// NewRequestLogger returns a logger writing to st. publisher may be nil.
func NewRequestLogger(st store.RequestStore, publisher Publisher, timeout time.Duration) *RequestLogger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RequestLogger{
		store:     st,
		publisher: publisher,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Record stamps the event and writes it in the background. It returns
// immediately; failures are logged and never reach the caller, and a client
// that disconnects does not cancel the write.
func (l *RequestLogger) Record(ctx context.Context, in RequestInput) {
	event := models.RequestEvent{
		ID:           uuid.New(),
		IP:           in.IP,
		URL:          in.URL,
		Method:       in.Method,
		UserAgent:    in.UserAgent,
		VisitorToken: in.VisitorToken,
		Host:         in.Host,
		Timestamp:    l.now().UTC(),
	}

	ctx = context.WithoutCancel(ctx)
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		l.write(ctx, event)
	}()
}

// Wait blocks until every write started by Record has finished.
func (l *RequestLogger) Wait() {
	l.pending.Wait()
}

func (l *RequestLogger) write(ctx context.Context, event models.RequestEvent) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.store.InsertRequest(ctx, &event); err != nil {
		log.Errorf("recording request from %s to %s failed: %v", event.IP, event.Host, err)
		return
	}

	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		log.Warningf("publishing request %s failed: %v", event.ID, err)
	}
}
