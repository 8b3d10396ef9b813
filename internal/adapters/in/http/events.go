package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"orderflow/internal/adapters/out/notifier"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// EventName is the server-sent event type of order updates.
const EventName = "orderUpdate"

// StreamEvents handles GET /api/v1/events. Each committed change is sent as
// an orderUpdate event carrying the id, status and version; clients fetch
// the new state through a batch refresh. With ids only those orders are
// streamed. Guests must name the orders they track. Only updates of orders
// the caller may read are sent. Updates missed while disconnected are not
// replayed.
func (s *Server) StreamEvents(c echo.Context) error {
	ids, err := queryIDs(c)
	if err != nil {
		return err
	}
	a := actorFrom(c)
	if a.IsGuest() && len(ids) == 0 {
		return errs.NewValueIsRequiredError("ids")
	}

	sub := s.events.Subscribe(notifier.DefaultBuffer)
	defer s.events.Unsubscribe(sub)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err = fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case event, ok := <-sub.C():
			if !ok {
				return nil
			}
			if len(ids) > 0 && !slices.ContainsFunc(ids, func(id kernel.UUID) bool { return id.IsEqual(event.OrderID) }) {
				continue
			}
			if !s.visible(ctx, a, event.OrderID) {
				continue
			}

			data, marshalErr := json.Marshal(notifier.NewPayload(event))
			if marshalErr != nil {
				s.logger.Error("encode order update", "order_id", event.OrderID.String(), "error", marshalErr)
				continue
			}
			if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventName, data); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return nil
			}
			w.Flush()
		}
	}
}

// visible reads the order through the same check GET /orders/:id applies.
func (s *Server) visible(ctx context.Context, a actor.Actor, id kernel.UUID) bool {
	query, err := queries.NewGetOrderQuery(a, id)
	if err != nil {
		return false
	}
	if _, err = s.h.GetOrder.Handle(ctx, query); err != nil {
		if !errors.Is(err, errs.ErrPermissionDenied) {
			s.logger.Debug("skip order update", "order_id", id.String(), "error", err)
		}
		return false
	}
	return true
}
