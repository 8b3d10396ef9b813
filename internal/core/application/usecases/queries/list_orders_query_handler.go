package queries

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
)

type ListOrdersQueryHandler struct {
	reader ports.OrderReader
	filter services.OrderFilter
}

func NewListOrdersQueryHandler(reader ports.OrderReader, filter services.OrderFilter) ListOrdersQueryHandler {
	return ListOrdersQueryHandler{reader: reader, filter: filter}
}

// Handle returns one page of matching orders, newest first. Role scope,
// ids and statuses are pushed down to storage. Any other criterion is
// evaluated in memory over the whole scope before the page is cut, so
// pages are never short because of filtering.
func (h ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]*order.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	criteria := query.Criteria()
	scope := ports.ListScope{
		Viewer:   query.Actor(),
		Statuses: criteria.Statuses,
		IDs:      query.IDs(),
	}

	rest := criteria
	rest.Statuses = nil
	if rest.IsEmpty() {
		scope.Limit = query.Limit()
		scope.Offset = query.Offset()
		return h.reader.List(ctx, scope)
	}

	all, err := h.reader.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	return page(h.filter.Apply(query.Actor(), all, criteria), query.Offset(), query.Limit()), nil
}

func page(orders []*order.Order, offset, limit uint64) []*order.Order {
	n := uint64(len(orders))
	if offset >= n {
		return []*order.Order{}
	}
	end := min(offset+limit, n)
	return orders[offset:end]
}
