package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/infrastructure/resilience"
)

// Queue transports case submissions to workers and publishes finished
// reports and review decisions as JSON messages.
type Queue struct {
	conn           *nats.Conn
	casesSubject   string
	reportsSubject string
	reviewsSubject string
	executor       *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

type Subjects struct {
	Cases   string
	Reports string
	Reviews string
}

func New(url string, subjects Subjects) (*Queue, error) {
	return NewWithOptions(url, subjects, Options{})
}

func NewWithOptions(url string, subjects Subjects, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("riskflow"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		casesSubject:   subjects.Cases,
		reportsSubject: subjects.Reports,
		reviewsSubject: subjects.Reviews,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishCase(ctx context.Context, cs domain.CreditCase) error {
	payload, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}
	return q.publish(ctx, q.casesSubject, payload)
}

func (q *Queue) PublishReport(ctx context.Context, report *domain.FinalReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return q.publish(ctx, q.reportsSubject, payload)
}

// PublishReviewDecision routes a human decision to the worker holding the
// suspended run. The subject carries the case ID as its last token.
func (q *Queue) PublishReviewDecision(ctx context.Context, caseID string, decision domain.ReviewDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("marshal review decision: %w", err)
	}
	return q.publish(ctx, q.reviewsSubject+"."+caseID, payload)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTransientIfNeeded(err)
	}
	return nil
}

// SubscribeCases consumes case submissions on a worker queue group until
// the context is cancelled.
func (q *Queue) SubscribeCases(ctx context.Context, handler func(context.Context, domain.CreditCase) error) error {
	sub, err := q.conn.QueueSubscribe(q.casesSubject, "workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var cs domain.CreditCase
		if err := json.Unmarshal(msg.Data, &cs); err != nil {
			log.Printf("worker: malformed case message: %v", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, cs); err != nil {
			log.Printf("worker handler error for case=%s: %v", cs.ID, err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// SubscribeReviewDecisions delivers incoming decisions to the given sink,
// typically the in-process review hub.
func (q *Queue) SubscribeReviewDecisions(ctx context.Context, submit func(ctx context.Context, caseID string, decision domain.ReviewDecision) error) (*nats.Subscription, error) {
	wildcard := q.reviewsSubject + ".*"
	sub, err := q.conn.Subscribe(wildcard, func(msg *nats.Msg) {
		caseID := msg.Subject[len(q.reviewsSubject)+1:]

		var decision domain.ReviewDecision
		if err := json.Unmarshal(msg.Data, &decision); err != nil {
			log.Printf("worker: malformed review decision for case=%s: %v", caseID, err)
			return
		}
		if err := submit(ctx, caseID, decision); err != nil {
			log.Printf("worker: review decision rejected for case=%s: %v", caseID, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe reviews: %w", err)
	}
	return sub, nil
}
