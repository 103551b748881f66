// Package events publishes dashboard mutation events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"products-dashboard/internal/models"
)

const (
	StreamName = "DASHBOARD_EVENTS"

	SubjectProductCreated         = "dashboard.product.created"
	SubjectProductUpdated         = "dashboard.product.updated"
	SubjectProductReconcileFailed = "dashboard.product.reconcile_failed"

	publishTimeout = 10 * time.Second
)

// ProductEvent is the message body for every dashboard product event
type ProductEvent struct {
	EventID      string    `json:"eventId"`
	EventType    string    `json:"eventType"`
	SessionID    string    `json:"sessionId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	ProductID    string    `json:"productId"`
	Title        string    `json:"title,omitempty"`
	Price        float64   `json:"price,omitempty"`
	CategoryName string    `json:"categoryName,omitempty"`
	Message      string    `json:"message,omitempty"`
}

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends product events. A nil *Publisher drops every event.
type Publisher struct {
	nc       *nats.Conn
	js       streamPublisher
	logger   *logrus.Entry
	inflight sync.WaitGroup
}

// NewPublisher connects to NATS and makes sure the dashboard stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	log := logger.WithField("component", "dashboard-events")

	nc, err := nats.Connect(natsURL,
		nats.Name("products-dashboard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectBufSize(8*1024*1024),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.WithError(err).Error("NATS error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"dashboard.product.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to ensure dashboard stream (may already exist)")
	}

	return &Publisher{nc: nc, js: js, logger: log}, nil
}

func newPublisherWith(js streamPublisher, logger *logrus.Logger) *Publisher {
	return &Publisher{js: js, logger: logger.WithField("component", "dashboard-events")}
}

// Close waits for in-flight publishes and closes the connection
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.inflight.Wait()
	if p.nc != nil {
		p.nc.Close()
	}
}

// PublishProductCreated publishes dashboard.product.created
func (p *Publisher) PublishProductCreated(ctx context.Context, sessionID string, product *models.Product) {
	if p == nil || product == nil {
		return
	}
	p.publish(SubjectProductCreated, p.buildProductEvent("product.created", sessionID, product))
}

// PublishProductUpdated publishes dashboard.product.updated
func (p *Publisher) PublishProductUpdated(ctx context.Context, sessionID string, product *models.Product) {
	if p == nil || product == nil {
		return
	}
	p.publish(SubjectProductUpdated, p.buildProductEvent("product.updated", sessionID, product))
}

// PublishReconcileFailed reports a remote update that could not be applied locally
func (p *Publisher) PublishReconcileFailed(ctx context.Context, sessionID string, productID models.ProductID, reason string) {
	if p == nil {
		return
	}
	event := &ProductEvent{
		EventID:   uuid.New().String(),
		EventType: "product.reconcile_failed",
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		ProductID: productID.String(),
		Message:   reason,
	}
	p.publish(SubjectProductReconcileFailed, event)
}

func (p *Publisher) buildProductEvent(eventType, sessionID string, product *models.Product) *ProductEvent {
	return &ProductEvent{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		SessionID:    sessionID,
		Timestamp:    time.Now().UTC(),
		ProductID:    product.ID.String(),
		Title:        product.Title,
		Price:        product.Price.Float64(),
		CategoryName: product.CategoryName(),
	}
}

// publish sends asynchronously so a slow broker never blocks a request
func (p *Publisher) publish(subject string, event *ProductEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to encode product event")
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		fields := logrus.Fields{
			"eventType": event.EventType,
			"productID": event.ProductID,
			"sessionID": event.SessionID,
		}
		if _, err := p.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(event.EventID)); err != nil {
			p.logger.WithFields(fields).WithError(err).Error("Failed to publish product event")
			return
		}
		p.logger.WithFields(fields).Info("Product event published successfully")
	}()
}
