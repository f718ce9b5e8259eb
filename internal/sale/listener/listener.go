package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/sale"
	"github.com/fekuna/omnipos-inventory-service/internal/sale/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/broker"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.uber.org/zap"
)

type SaleListener struct {
	consumer *broker.KafkaConsumer
	uc       sale.UseCase
	logger   logger.ZapLogger
}

func NewSaleListener(consumer *broker.KafkaConsumer, uc sale.UseCase, logger logger.ZapLogger) *SaleListener {
	return &SaleListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *SaleListener) Start(ctx context.Context) {
	l.logger.Info("Starting Sale Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Sale Kafka Listener")
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

type SaleCreatedEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   SalePayload `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type SalePayload struct {
	ID       string            `json:"id"`
	TenantID string            `json:"tenant_id"`
	StoreID  string            `json:"store_id"`
	UserID   string            `json:"user_id"`
	Items    []SaleItemPayload `json:"items"`
}

type SaleItemPayload struct {
	InventoryID string  `json:"inventory_id"`
	Quantity    float64 `json:"quantity"`
}

func (l *SaleListener) processMessage(ctx context.Context, value []byte) {
	var event SaleCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "SaleCreated" {
		return
	}

	l.logger.Info("Processing SaleCreated event", zap.String("sale_id", event.Payload.ID))

	lines := make([]dto.SaleLine, 0, len(event.Payload.Items))
	for _, item := range event.Payload.Items {
		lines = append(lines, dto.SaleLine{
			InventoryID: item.InventoryID,
			Quantity:    item.Quantity,
		})
	}

	saleCtx := auth.WithTenantID(ctx, event.Payload.TenantID)
	_, err := l.uc.ReserveForSale(saleCtx, &dto.ReserveForSaleInput{
		SaleID:  event.Payload.ID,
		StoreID: event.Payload.StoreID,
		Lines:   lines,
		UserID:  event.Payload.UserID,
	})
	if err != nil {
		// The workflow is user-driven; failures surface to the sale flow
		// and are retried by resubmission, never automatically here.
		l.logger.Error("Failed to reserve inventory for sale",
			zap.String("sale_id", event.Payload.ID),
			zap.String("store_id", event.Payload.StoreID),
			zap.Error(err),
		)
	}
}
