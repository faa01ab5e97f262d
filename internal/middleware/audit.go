package middleware

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"cognis/internal/domain"
)

const auditWriteTimeout = 5 * time.Second

type AuditStore interface {
	Create(ctx context.Context, e *domain.AuditLogEntry) error
}

// AuditRecorder writes one audit entry per request after the handler chain
// has produced its response. Entries go through a buffered queue drained by a
// single worker; when the queue is full the entry is written inline. Write
// failures are logged and never reach the caller.
type AuditRecorder struct {
	store AuditStore
	queue chan *domain.AuditLogEntry
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	now func() time.Time
}

func NewAuditRecorder(store AuditStore, queueSize int) *AuditRecorder {
	if queueSize < 0 {
		queueSize = 0
	}
	r := &AuditRecorder{
		store: store,
		queue: make(chan *domain.AuditLogEntry, queueSize),
		done:  make(chan struct{}),
		now:   func() time.Time { return time.Now().UTC() },
	}
	go r.run()
	return r
}

// Middleware must be registered before every other middleware so the final
// status code, including recovered panics, is observed.
func (r *AuditRecorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := &domain.AuditLogEntry{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			Timestamp:  r.now(),
		}
		if ua := c.Request.UserAgent(); ua != "" {
			entry.UserAgent = &ua
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			entry.UserID = &uid
		}

		r.Record(entry)
	}
}

// Record enqueues e, or writes it immediately when the queue is full or the
// recorder has been closed.
func (r *AuditRecorder) Record(e *domain.AuditLogEntry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.write(e)
		return
	}

	select {
	case r.queue <- e:
	default:
		r.write(e)
	}
}

// Close stops accepting queued entries and waits until the queue is drained.
func (r *AuditRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *AuditRecorder) run() {
	defer close(r.done)
	for e := range r.queue {
		r.write(e)
	}
}

func (r *AuditRecorder) write(e *domain.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := r.store.Create(ctx, e); err != nil {
		auditWriteFailures.Inc()
		log.Printf("audit_write_failed method=%s path=%s status=%d err=%v", e.Method, e.Path, e.StatusCode, err)
	}
}
