package dialogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/storebuddy/internal/catalog"
	"github.com/avvvet/storebuddy/internal/metrics"
	"github.com/avvvet/storebuddy/internal/models"
	"go.uber.org/zap"
)

// Receipt describes a placed order.
type Receipt struct {
	Product    models.Product // state after the decrement
	Quantity   int
	UnitPrice  float64
	Total      float64
	CustomerID string
}

// Orders is the only path that mutates catalog stock.
type Orders struct {
	store *catalog.Store
	settings
}

func NewOrders(store *catalog.Store, opts ...Option) *Orders {
	return &Orders{store: store, settings: newSettings(opts)}
}

// Create verifies stock, decrements it and persists the catalog. A
// rejected order leaves the catalog untouched.
func (o *Orders) Create(ctx context.Context, req models.OrderRequest) (Receipt, error) {
	if req.Quantity <= 0 {
		o.metrics.ObserveOrder(metrics.OrderFailed)
		return Receipt{}, catalog.ErrInvalidQuantity
	}

	product, err := o.store.FindByID(req.ProductID)
	if err != nil {
		o.metrics.ObserveOrder(metrics.OrderNotFound)
		return Receipt{}, err
	}

	unitPrice := req.UnitPrice
	if unitPrice <= 0 {
		unitPrice = product.UnitPrice()
	}

	updated, err := o.store.DecrementStock(ctx, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrInsufficientStock):
			o.metrics.ObserveOrder(metrics.OrderInsufficient)
			return Receipt{Product: updated, Quantity: req.Quantity, CustomerID: req.CustomerID}, err
		case errors.Is(err, catalog.ErrNotFound):
			o.metrics.ObserveOrder(metrics.OrderNotFound)
		default:
			o.metrics.ObserveOrder(metrics.OrderFailed)
		}
		return Receipt{}, err
	}
	o.metrics.ObserveOrder(metrics.OrderPlaced)

	receipt := Receipt{
		Product:    updated,
		Quantity:   req.Quantity,
		UnitPrice:  unitPrice,
		Total:      unitPrice * float64(req.Quantity),
		CustomerID: req.CustomerID,
	}
	o.logger.Info("order placed",
		zap.Int("product_id", updated.ID),
		zap.Int("quantity", req.Quantity),
		zap.Float64("total", receipt.Total),
		zap.String("customer_id", req.CustomerID))

	if o.publisher != nil {
		event := models.StockEvent{ProductID: updated.ID, Name: updated.Name, Quantity: updated.Quantity}
		if err := o.publisher.Publish(ctx, event); err != nil {
			o.logger.Warn("failed to publish stock event", zap.Int("product_id", updated.ID), zap.Error(err))
		}
	}
	return receipt, nil
}

// orderReply phrases the outcome of Create for the chat channel.
func orderReply(receipt Receipt, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf(msgOrderConfirmed,
			receipt.Quantity, receipt.Product.Name, models.FormatPrice(receipt.Total), receipt.Product.Quantity)
	case errors.Is(err, catalog.ErrInsufficientStock):
		return fmt.Sprintf(msgOrderInsufficient, receipt.Product.Quantity, receipt.Product.Name)
	case errors.Is(err, catalog.ErrNotFound):
		return msgOrderNotFound
	case errors.Is(err, catalog.ErrInvalidQuantity):
		return msgOrderInvalid
	default:
		return msgOrderFailed
	}
}
