package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Conditional request headers; echo has no constants for them.
const (
	HeaderIfMatch     = "If-Match"
	HeaderIfNoneMatch = "If-None-Match"
	HeaderETag        = "ETag"
)

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("body", err)
	}
	return c.Validate(dst)
}

func orderID(c echo.Context) (kernel.UUID, error) {
	return kernel.UUIDFromString(c.Param("id"))
}

// expectedVersion reads If-Match. Both "3" and the quoted ETag form are
// accepted; an absent header skips the version check.
func expectedVersion(c echo.Context) (int64, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(HeaderIfMatch))
	if raw == "" || raw == "*" {
		return 0, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errs.NewVersionIsInvalidErrorWithCause("If-Match", err)
	}
	if v < 1 {
		return 0, errs.NewVersionIsInvalidError("If-Match")
	}
	return v, nil
}

func etag(o *order.Order) string {
	return `"` + strconv.FormatInt(o.Version(), 10) + `"`
}

func setETag(c echo.Context, o *order.Order) string {
	tag := etag(o)
	c.Response().Header().Set(HeaderETag, tag)
	return tag
}

// splitValues flattens repeated and comma separated query values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryIDs(c echo.Context) ([]kernel.UUID, error) {
	raw := splitValues(c.QueryParams()["ids"])
	ids := make([]kernel.UUID, 0, len(raw))
	var errList []error
	for _, s := range raw {
		id, err := kernel.UUIDFromString(s)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		ids = append(ids, id)
	}
	if err := errors.Join(errList...); err != nil {
		return nil, err
	}
	return ids, nil
}

type listParams struct {
	criteria services.Criteria
	ids      []kernel.UUID
	limit    uint64
	offset   uint64
}

// listParamsFrom reads the listing filters:
// status, dateFrom, dateTo, timeFrom, timeTo, priceMin, priceMax, type,
// assignment, q, tz, ids, limit and offset.
func listParamsFrom(c echo.Context) (listParams, error) {
	var p listParams
	var errList []error
	collect := func(err error) {
		if err != nil {
			errList = append(errList, err)
		}
	}

	for _, code := range splitValues(c.QueryParams()["status"]) {
		s, err := order.ParseStatus(code)
		collect(err)
		p.criteria.Statuses = append(p.criteria.Statuses, s)
	}

	p.criteria.DateFrom = optionalParam(c, "dateFrom", services.ParseDate, collect)
	p.criteria.DateTo = optionalParam(c, "dateTo", services.ParseDate, collect)
	p.criteria.TimeFrom = optionalParam(c, "timeFrom", services.ParseTimeOfDay, collect)
	p.criteria.TimeTo = optionalParam(c, "timeTo", services.ParseTimeOfDay, collect)
	p.criteria.PriceMin = optionalParam(c, "priceMin", parseAmount("priceMin"), collect)
	p.criteria.PriceMax = optionalParam(c, "priceMax", parseAmount("priceMax"), collect)

	var err error
	p.criteria.OrderType, err = services.ParseOrderType(c.QueryParam("type"))
	collect(err)
	p.criteria.Assignment, err = services.ParseAssignment(c.QueryParam("assignment"))
	collect(err)
	p.criteria.Search = strings.TrimSpace(c.QueryParam("q"))

	if tz := c.QueryParam("tz"); tz != "" {
		loc, locErr := time.LoadLocation(tz)
		if locErr != nil {
			collect(errs.NewValueIsInvalidErrorWithCause("tz", locErr))
		}
		p.criteria.Location = loc
	}

	p.ids, err = queryIDs(c)
	collect(err)

	if bindErr := echo.QueryParamsBinder(c).
		Uint64("limit", &p.limit).
		Uint64("offset", &p.offset).
		BindError(); bindErr != nil {
		collect(errs.NewValueIsInvalidErrorWithCause("paging", bindErr))
	}

	if err = errors.Join(errList...); err != nil {
		return listParams{}, err
	}
	return p, nil
}

func optionalParam[T any](c echo.Context, name string, parse func(string) (T, error), collect func(error)) *T {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := parse(raw)
	if err != nil {
		collect(err)
		return nil
	}
	return &v
}

func parseAmount(name string) func(string) (int64, error) {
	return func(s string) (int64, error) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, errs.NewValueIsInvalidErrorWithCause(name, err)
		}
		return v, nil
	}
}
