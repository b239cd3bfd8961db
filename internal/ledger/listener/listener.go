package listener

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/chrisostomemataba/inventory-ledger/internal/ledger"
	"github.com/chrisostomemataba/inventory-ledger/internal/ledger/dto"
	"github.com/chrisostomemataba/inventory-ledger/internal/model"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/broker"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/logger"
)

// OrderListener turns OrderCreated events into OUT movements through the
// same transaction engine path the API uses.
type OrderListener struct {
	consumer *broker.KafkaConsumer
	uc       ledger.UseCase
	logger   logger.ZapLogger
}

func NewOrderListener(consumer *broker.KafkaConsumer, uc ledger.UseCase, log logger.ZapLogger) *OrderListener {
	return &OrderListener{
		consumer: consumer,
		uc:       uc,
		logger:   log,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order event listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order event listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID    string             `json:"id"`
	Items []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "OrderCreated" {
		return
	}

	l.logger.Info("Processing OrderCreated event", zap.String("order_id", event.Payload.ID))

	for _, item := range event.Payload.Items {
		input := &dto.ApplyTransactionInput{
			ProductID:       item.ProductID,
			TransactionType: model.TransactionOut,
			Quantity:        item.Quantity,
			UserID:          "system",
			Notes:           "Order sale",
			ReferenceID:     event.Payload.ID,
			ReferenceType:   "sale",
		}

		if _, err := l.uc.Apply(ctx, input); err != nil {
			l.logger.Error("Failed to apply order item movement",
				zap.String("order_id", event.Payload.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}
