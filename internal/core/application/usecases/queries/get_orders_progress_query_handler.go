package queries

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultProgressBatchLimit = 100

	// loadTimeout bounds a shared read, which outlives any single caller.
	loadTimeout = 10 * time.Second
)

// GetOrdersProgressQueryHandler answers batch refreshes. Concurrent requests
// for the same set of ids share one storage read; progress is computed per
// request at the handler's clock.
type GetOrdersProgressQueryHandler struct {
	reader   ports.OrderReader
	gateway  services.ActionGateway
	engine   services.ProgressEngine
	clock    services.Clock
	limit    int
	recorder BatchRecorder

	group *singleflight.Group
}

// NewGetOrdersProgressQueryHandler caps a batch at limit ids; a limit below
// one means DefaultProgressBatchLimit. recorder may be nil.
func NewGetOrdersProgressQueryHandler(
	reader ports.OrderReader,
	gateway services.ActionGateway,
	engine services.ProgressEngine,
	clock services.Clock,
	limit int,
	recorder BatchRecorder,
) GetOrdersProgressQueryHandler {
	if limit < 1 {
		limit = DefaultProgressBatchLimit
	}
	return GetOrdersProgressQueryHandler{
		reader:   reader,
		gateway:  gateway,
		engine:   engine,
		clock:    clock,
		limit:    limit,
		recorder: recorder,
		group:    new(singleflight.Group),
	}
}

// Handle returns progress for the requested orders the actor can see, in
// request order. Unknown and hidden ids are left out of the result.
func (h GetOrdersProgressQueryHandler) Handle(
	ctx context.Context,
	query GetOrdersProgressQuery,
) ([]services.OrderProgress, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	ids := query.IDs()
	if len(ids) > h.limit {
		return nil, errs.NewValueIsOutOfRangeError("ids", len(ids), 1, h.limit)
	}
	if h.recorder != nil {
		h.recorder.ProgressBatch(len(ids))
	}

	orders, err := h.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[kernel.UUID]*order.Order, len(orders))
	for _, o := range orders {
		byID[o.ID()] = o
	}

	now := h.clock.Now()
	out := make([]services.OrderProgress, 0, len(ids))
	for _, id := range ids {
		o, ok := byID[id]
		if !ok || !h.gateway.CanView(query.Actor(), o) {
			continue
		}
		out = append(out, h.engine.Compute(o, now))
	}
	return out, nil
}

// load reads the orders once per distinct id set in flight. The loaded
// aggregates are shared between callers and must only be read. The read
// does not inherit the first caller's cancellation; each caller stops
// waiting when its own context ends.
func (h GetOrdersProgressQueryHandler) load(ctx context.Context, ids []kernel.UUID) ([]*order.Order, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b kernel.UUID) int { return strings.Compare(a.String(), b.String()) })

	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = id.String()
	}

	shared := context.WithoutCancel(ctx)
	ch := h.group.DoChan(strings.Join(keys, ","), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(shared, loadTimeout)
		defer cancel()
		return h.reader.GetMany(loadCtx, sorted)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load orders: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load orders: %w", res.Err)
		}
		return res.Val.([]*order.Order), nil //nolint:forcetypeassert // the group only stores GetMany results
	}
}
