// Package http exposes the order lifecycle over a JSON API served by echo.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"orderflow/internal/adapters/out/notifier"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"

	"github.com/labstack/echo/v4"
)

// Handlers are the use cases the API dispatches to.
type Handlers struct {
	// Command handlers
	PlaceOrder     commands.PlaceOrderCommandHandler
	PerformAction  commands.PerformActionCommandHandler
	SetPayment     commands.SetPaymentCommandHandler
	SubmitFeedback commands.SubmitFeedbackCommandHandler

	// Query handlers
	GetOrder            queries.GetOrderQueryHandler
	GetAvailableActions queries.GetAvailableActionsQueryHandler
	GetOrdersProgress   queries.GetOrdersProgressQueryHandler
	ListOrders          queries.ListOrdersQueryHandler
}

// EventSource is the in-process stream of committed order updates.
type EventSource interface {
	Subscribe(buffer int) *notifier.Subscription
	Unsubscribe(s *notifier.Subscription)
}

// Server maps HTTP requests onto the application use cases.
type Server struct {
	h         Handlers
	events    EventSource
	clock     services.Clock
	logger    *slog.Logger
	heartbeat time.Duration
}

const DefaultHeartbeat = 15 * time.Second

func NewServer(h Handlers, events EventSource, clock services.Clock, logger *slog.Logger) *Server {
	return &Server{
		h:         h,
		events:    events,
		clock:     clock,
		logger:    logger.With("component", "http"),
		heartbeat: DefaultHeartbeat,
	}
}

// Register mounts every endpoint on g, normally the /api/v1 group.
func (s *Server) Register(g *echo.Group) {
	g.POST("/orders", s.PlaceOrder)
	g.GET("/orders", s.ListOrders)
	g.GET("/orders/progress", s.GetOrdersProgress)
	g.GET("/orders/:id", s.GetOrder)
	g.GET("/orders/:id/actions", s.GetAvailableActions)

	g.POST("/orders/:id/accept", s.AcceptOrder)
	g.POST("/orders/:id/reject", s.RejectOrder)
	g.POST("/orders/:id/prepare", s.PrepareOrder)
	g.POST("/orders/:id/accept-driver", s.AcceptByDriver)
	g.POST("/orders/:id/pickup", s.PickupOrder)
	g.POST("/orders/:id/deliver", s.DeliverOrder)
	g.POST("/orders/:id/receive", s.ReceiveOrder)
	g.POST("/orders/:id/adjust/:phase", s.AdjustPhase)

	g.POST("/orders/:id/paid", s.MarkPaid)
	g.DELETE("/orders/:id/paid", s.MarkUnpaid)
	g.POST("/orders/:id/feedback", s.SubmitFeedback)

	g.GET("/events", s.StreamEvents)
}

// PlaceOrder handles POST /api/v1/orders.
func (s *Server) PlaceOrder(c echo.Context) error {
	var req PlaceOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	a := actorFrom(c)
	details, err := req.details(a)
	if err != nil {
		return err
	}

	cmd, err := commands.NewPlaceOrderCommand(kernel.NewUUID(), a, details)
	if err != nil {
		return err
	}

	placed, err := s.h.PlaceOrder.Handle(c.Request().Context(), cmd)
	if err != nil {
		return err
	}

	setETag(c, placed)
	c.Response().Header().Set(echo.HeaderLocation, c.Path()+"/"+placed.ID().String())
	return c.JSON(http.StatusCreated, newOrderResponse(placed))
}

func (s *Server) AcceptOrder(c echo.Context) error    { return s.perform(c, order.Accept) }
func (s *Server) RejectOrder(c echo.Context) error    { return s.perform(c, order.Reject) }
func (s *Server) PrepareOrder(c echo.Context) error   { return s.perform(c, order.Prepare) }
func (s *Server) AcceptByDriver(c echo.Context) error { return s.perform(c, order.AcceptDriver) }
func (s *Server) PickupOrder(c echo.Context) error    { return s.perform(c, order.Pickup) }
func (s *Server) DeliverOrder(c echo.Context) error   { return s.perform(c, order.Deliver) }
func (s *Server) ReceiveOrder(c echo.Context) error   { return s.perform(c, order.Receive) }

func (s *Server) perform(c echo.Context, kind order.ActionKind) error {
	action, err := order.NewAction(kind)
	if err != nil {
		return err
	}
	return s.run(c, action)
}

// AdjustPhase handles POST /api/v1/orders/{id}/adjust/{phase}.
func (s *Server) AdjustPhase(c echo.Context) error {
	var req AdjustRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	phase, err := order.ParsePhase(c.Param("phase"))
	if err != nil {
		return err
	}
	action, err := order.NewAdjustment(phase, req.DeltaMinutes)
	if err != nil {
		return err
	}
	return s.run(c, action)
}

func (s *Server) run(c echo.Context, action order.Action) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	expected, err := expectedVersion(c)
	if err != nil {
		return err
	}

	cmd, err := commands.NewPerformActionCommand(actorFrom(c), id, action, expected)
	if err != nil {
		return err
	}

	result, err := s.h.PerformAction.Handle(c.Request().Context(), cmd)
	if err != nil {
		return err
	}

	setETag(c, result.Order)
	return c.JSON(http.StatusOK, newActionResponse(result))
}

func (s *Server) MarkPaid(c echo.Context) error   { return s.setPaid(c, true) }
func (s *Server) MarkUnpaid(c echo.Context) error { return s.setPaid(c, false) }

func (s *Server) setPaid(c echo.Context, paid bool) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}

	cmd, err := commands.NewSetPaymentCommand(actorFrom(c), id, paid)
	if err != nil {
		return err
	}

	updated, err := s.h.SetPayment.Handle(c.Request().Context(), cmd)
	if err != nil {
		return err
	}

	setETag(c, updated)
	return c.JSON(http.StatusOK, newOrderResponse(updated))
}

// SubmitFeedback handles POST /api/v1/orders/{id}/feedback.
func (s *Server) SubmitFeedback(c echo.Context) error {
	var req FeedbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	id, err := orderID(c)
	if err != nil {
		return err
	}

	cmd, err := commands.NewSubmitFeedbackCommand(actorFrom(c), id, req.Rating, req.Comment, req.reactions())
	if err != nil {
		return err
	}

	updated, err := s.h.SubmitFeedback.Handle(c.Request().Context(), cmd)
	if err != nil {
		return err
	}

	setETag(c, updated)
	return c.JSON(http.StatusOK, newOrderResponse(updated))
}

// GetOrder handles GET /api/v1/orders/{id}. A matching If-None-Match
// answers 304 without a body.
func (s *Server) GetOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}

	query, err := queries.NewGetOrderQuery(actorFrom(c), id)
	if err != nil {
		return err
	}

	view, err := s.h.GetOrder.Handle(c.Request().Context(), query)
	if err != nil {
		return err
	}

	tag := setETag(c, view.Order)
	if c.Request().Header.Get(HeaderIfNoneMatch) == tag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, newOrderViewResponse(view))
}

// GetAvailableActions handles GET /api/v1/orders/{id}/actions.
func (s *Server) GetAvailableActions(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}

	query, err := queries.NewGetAvailableActionsQuery(actorFrom(c), id)
	if err != nil {
		return err
	}

	set, err := s.h.GetAvailableActions.Handle(c.Request().Context(), query)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newAvailabilityResponses(set))
}

// GetOrdersProgress handles GET /api/v1/orders/progress?ids=a,b,c.
func (s *Server) GetOrdersProgress(c echo.Context) error {
	ids, err := queryIDs(c)
	if err != nil {
		return err
	}

	query, err := queries.NewGetOrdersProgressQuery(actorFrom(c), ids)
	if err != nil {
		return err
	}

	progress, err := s.h.GetOrdersProgress.Handle(c.Request().Context(), query)
	if err != nil {
		return err
	}

	response := make([]ProgressResponse, 0, len(progress))
	for _, p := range progress {
		response = append(response, newProgressResponse(p))
	}
	return c.JSON(http.StatusOK, BatchProgressResponse{
		Orders:    response,
		Evaluated: s.clock.Now().UTC(),
	})
}

// ListOrders handles GET /api/v1/orders.
func (s *Server) ListOrders(c echo.Context) error {
	params, err := listParamsFrom(c)
	if err != nil {
		return err
	}

	query, err := queries.NewListOrdersQuery(actorFrom(c), params.criteria, params.ids, params.limit, params.offset)
	if err != nil {
		return err
	}

	orders, err := s.h.ListOrders.Handle(c.Request().Context(), query)
	if err != nil {
		return err
	}

	response := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, newOrderResponse(o))
	}
	return c.JSON(http.StatusOK, response)
}
