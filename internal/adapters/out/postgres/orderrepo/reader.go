package orderrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SqlxOrderReader implements ports.OrderReader. It shares the connection
// pool of the GORM handle and reads committed rows only.
type SqlxOrderReader struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewSqlxOrderReader wraps db. driverName selects the placeholder style:
// "postgres" and "pgx" use $n, anything else uses ?.
func NewSqlxOrderReader(db *sql.DB, driverName string) *SqlxOrderReader {
	var format sq.PlaceholderFormat = sq.Question
	if driverName == "postgres" || driverName == "pgx" {
		format = sq.Dollar
	}
	return &SqlxOrderReader{
		db: sqlx.NewDb(db, driverName),
		sb: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

func (r *SqlxOrderReader) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	query, args, err := r.sb.Select(columns...).From("orders").Where(sq.Eq{"id": id.Bytes()}).ToSql()
	if err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err = r.db.GetContext(ctx, &dto, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return toDomain(dto)
}

func (r *SqlxOrderReader) GetMany(ctx context.Context, ids []kernel.UUID) ([]*order.Order, error) {
	if len(ids) == 0 {
		return []*order.Order{}, nil
	}

	raw, err := rawIDs(ids)
	if err != nil {
		return nil, err
	}

	query, args, err := r.sb.Select(columns...).From("orders").Where(sq.Eq{"id": raw}).ToSql()
	if err != nil {
		return nil, err
	}

	var dtos []OrderDTO
	if err = r.db.SelectContext(ctx, &dtos, query, args...); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return inRequestOrder(ids, dtos)
}

// List returns the orders in scope, newest first.
func (r *SqlxOrderReader) List(ctx context.Context, scope ports.ListScope) ([]*order.Order, error) {
	if err := scope.Viewer.Validate(); err != nil {
		return nil, err
	}
	if scope.Viewer.IsGuest() && len(scope.IDs) == 0 {
		return []*order.Order{}, nil
	}

	sb, err := r.scoped(scope)
	if err != nil {
		return nil, err
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	var dtos []OrderDTO
	if err = r.db.SelectContext(ctx, &dtos, query, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, restoreErr := toDomain(dto)
		if restoreErr != nil {
			return nil, restoreErr
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *SqlxOrderReader) scoped(scope ports.ListScope) (sq.SelectBuilder, error) {
	sb := r.sb.Select(columns...).From("orders").OrderBy("date_placed DESC", "id")

	viewer := scope.Viewer
	switch viewer.Role() {
	case actor.Store:
		sb = sb.Where(sq.Eq{"store_id": viewer.ID().Bytes()})
	case actor.Customer:
		sb = sb.Where(sq.Eq{"customer_id": viewer.ID().Bytes()})
	case actor.Driver:
		sb = sb.Where(sq.Or{
			sq.Eq{"driver_id": viewer.ID().Bytes()},
			sq.And{
				sq.Eq{"driver_id": nil},
				sq.Eq{"is_takeout": true},
				sq.Eq{"state_given": int(order.ByStore)},
				sq.Eq{"status": []int{int(order.Accepted), int(order.Prepared)}},
			},
		})
	case actor.Admin, actor.Guest:
	case actor.UnknownRole:
		return sb, errs.NewValueIsInvalidError("viewer")
	}

	if len(scope.IDs) > 0 {
		raw, err := rawIDs(scope.IDs)
		if err != nil {
			return sb, err
		}
		sb = sb.Where(sq.Eq{"id": raw})
	}

	if len(scope.Statuses) > 0 {
		statuses := make([]int, 0, len(scope.Statuses))
		for _, s := range scope.Statuses {
			statuses = append(statuses, int(s))
		}
		sb = sb.Where(sq.Eq{"status": statuses})
	}

	if scope.Limit > 0 {
		sb = sb.Limit(scope.Limit)
	}
	if scope.Offset > 0 {
		sb = sb.Offset(scope.Offset)
	}
	return sb, nil
}

func rawIDs(ids []kernel.UUID) ([]uuid.UUID, error) {
	raw := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return nil, err
		}
		raw = append(raw, id.Bytes())
	}
	return raw, nil
}
