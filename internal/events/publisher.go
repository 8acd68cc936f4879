package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/models"
)

// Subjects published by the catalog service
const (
	SubjectProductCreated  = "catalog.product.created"
	SubjectProductUpdated  = "catalog.product.updated"
	SubjectProductDeleted  = "catalog.product.deleted"
	SubjectImportCompleted = "catalog.import.completed"
)

// ProductEvent is the payload for product lifecycle events
type ProductEvent struct {
	EventType  string    `json:"event_type"`
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name,omitempty"`
	CategoryID string    `json:"category_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ImportCompletedEvent is published after every import run, including aborted ones
type ImportCompletedEvent struct {
	EventType       string    `json:"event_type"`
	Filename        string    `json:"filename"`
	Success         bool      `json:"success"`
	TotalRows       int       `json:"total_rows"`
	RowsProcessed   int       `json:"rows_processed"`
	ProductsCreated int       `json:"products_created"`
	ProductsSkipped int       `json:"products_skipped"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher publishes catalog events to NATS. A nil Publisher is valid and
// drops every event, so callers never need to guard for a disabled bus.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS at natsURL. An empty URL disables eventing
// and returns a nil publisher without error.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		logger.Info("NATS_URL not set, event publishing disabled")
		return nil, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("catalog-service"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "events.publisher"),
	}, nil
}

func (p *Publisher) publish(subject string, event interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// PublishProductCreated publishes a product created event
func (p *Publisher) PublishProductCreated(_ context.Context, product *models.Product) {
	event := ProductEvent{
		EventType: "product.created",
		ProductID: product.ID.String(),
		Name:      product.Name,
		Timestamp: time.Now().UTC(),
	}
	if product.CategoryID != nil {
		event.CategoryID = product.CategoryID.String()
	}
	p.publish(SubjectProductCreated, event)
}

// PublishProductUpdated publishes a product updated event
func (p *Publisher) PublishProductUpdated(_ context.Context, product *models.Product) {
	event := ProductEvent{
		EventType: "product.updated",
		ProductID: product.ID.String(),
		Name:      product.Name,
		Timestamp: time.Now().UTC(),
	}
	if product.CategoryID != nil {
		event.CategoryID = product.CategoryID.String()
	}
	p.publish(SubjectProductUpdated, event)
}

// PublishProductDeleted publishes a product deleted event
func (p *Publisher) PublishProductDeleted(_ context.Context, productID uuid.UUID) {
	p.publish(SubjectProductDeleted, ProductEvent{
		EventType: "product.deleted",
		ProductID: productID.String(),
		Timestamp: time.Now().UTC(),
	})
}

// PublishImportCompleted publishes the outcome of an import run
func (p *Publisher) PublishImportCompleted(_ context.Context, filename string, result *models.ImportResult) {
	p.publish(SubjectImportCompleted, ImportCompletedEvent{
		EventType:       "import.completed",
		Filename:        filename,
		Success:         result.Success,
		TotalRows:       result.TotalRows,
		RowsProcessed:   result.RowsProcessed,
		ProductsCreated: result.ProductsCreated,
		ProductsSkipped: result.ProductsSkipped,
		Timestamp:       time.Now().UTC(),
	})
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
