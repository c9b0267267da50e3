package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/backoffice/internal/domain"
	pkgkafka "github.com/utafrali/backoffice/pkg/kafka"
	"github.com/utafrali/backoffice/pkg/logger"
)

// Aggregate types.
const (
	AggregateCategory     = "category"
	AggregateProduct      = "product"
	AggregateManufacturer = "manufacturer"
	AggregateInvoice      = "invoice"
)

// Actions, the last segment of a topic name.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionPaid    = "paid"
)

// SourceBackoffice identifies events published by this module.
const SourceBackoffice = "backoffice"

// Publisher is the transport the producer writes envelopes to.
// *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Discard is a Publisher that drops every event. It is used when no Kafka
// brokers are configured.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// CategoryData is the payload for category events.
type CategoryData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	ParentID string `json:"parent_id,omitempty"`
}

// ProductData is the payload for product events.
type ProductData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Inventory   string `json:"inventory"`
	IsAvailable bool   `json:"is_available"`
}

// ManufacturerData is the payload for manufacturer events.
type ManufacturerData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	UserID string `json:"user_id,omitempty"`
}

// InvoiceData is the payload for invoice events.
type InvoiceData struct {
	ID                 string         `json:"id"`
	IdentificationCode string         `json:"identification_code"`
	PaymentStatus      string         `json:"payment_status"`
	TotalPrice         string         `json:"total_price"`
	PaymentDate        *time.Time     `json:"payment_date,omitempty"`
	Items              []LineItemData `json:"items,omitempty"`
}

// LineItemData is one invoice line inside InvoiceData.
type LineItemData struct {
	ProductID string `json:"product_id"`
	Count     int    `json:"count"`
	UnitPrice string `json:"unit_price"`
}

// Producer publishes back office domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	if publisher == nil {
		publisher = Discard
	}
	return &Producer{publisher: publisher, logger: logger}
}

// PublishCategory publishes backoffice.category.<action>.
func (p *Producer) PublishCategory(ctx context.Context, action string, c *domain.Category) error {
	data := CategoryData{ID: c.ID, Name: c.Name, Kind: string(c.Kind)}
	if c.ParentID != nil {
		data.ParentID = *c.ParentID
	}
	return p.publish(ctx, AggregateCategory, action, c.ID, data)
}

// PublishProduct publishes backoffice.product.<action>.
func (p *Producer) PublishProduct(ctx context.Context, action string, prod *domain.Product) error {
	data := ProductData{
		ID:          prod.ID,
		Name:        prod.Name,
		Price:       prod.Price.StringFixed(domain.MoneyPlaces),
		Inventory:   prod.Inventory.String(),
		IsAvailable: prod.IsAvailable,
	}
	return p.publish(ctx, AggregateProduct, action, prod.ID, data)
}

// PublishManufacturer publishes backoffice.manufacturer.<action>.
func (p *Producer) PublishManufacturer(ctx context.Context, action string, m *domain.Manufacturer) error {
	data := ManufacturerData{ID: m.ID, Name: m.Name, Email: m.Email}
	if m.UserID != nil {
		data.UserID = *m.UserID
	}
	return p.publish(ctx, AggregateManufacturer, action, m.ID, data)
}

// PublishInvoice publishes backoffice.invoice.<action>.
func (p *Producer) PublishInvoice(ctx context.Context, action string, inv *domain.Invoice) error {
	data := InvoiceData{
		ID:                 inv.ID,
		IdentificationCode: inv.IdentificationCode,
		PaymentStatus:      string(inv.PaymentStatus),
		TotalPrice:         inv.TotalPrice.StringFixed(domain.MoneyPlaces),
		PaymentDate:        inv.PaymentDate,
	}
	for _, li := range inv.Items {
		data.Items = append(data.Items, LineItemData{
			ProductID: li.ProductID,
			Count:     li.Count,
			UnitPrice: li.UnitPrice.StringFixed(domain.MoneyPlaces),
		})
	}
	return p.publish(ctx, AggregateInvoice, action, inv.ID, data)
}

func (p *Producer) publish(ctx context.Context, aggregate, action, aggregateID string, data any) error {
	topic := pkgkafka.Topic(aggregate, action)

	evt, err := pkgkafka.NewEvent(aggregate+"."+action, aggregateID, aggregate, SourceBackoffice, data)
	if err != nil {
		return fmt.Errorf("create %s.%s event: %w", aggregate, action, err)
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)
	evt.ActorID = logger.UserIDFromContext(ctx)

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s.%s event: %w", aggregate, action, err)
	}

	p.logger.DebugContext(ctx, "published "+aggregate+"."+action+" event",
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
