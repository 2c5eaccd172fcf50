package domain

import "context"

type ShipmentRequest struct {
	Invoice          string
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	CODAmount        float64
	Note             string
}

type Shipment struct {
	TrackingCode  string
	ConsignmentID string
	Status        string
}

// Courier books parcels with the delivery partner.
type Courier interface {
	BookShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error)
	DeliveryStatus(ctx context.Context, trackingCode string) (string, error)
}

type Recipient struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

// Notifier delivers templated messages. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, to Recipient, template string, params map[string]any)
}

// EventPublisher is the realtime bus. Publish must not block.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

type FileStore interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (string, error)
}
