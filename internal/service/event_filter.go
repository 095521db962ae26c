package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
)

// Listing query parameters.
const (
	ParamSearch   = "s"
	ParamDateFrom = "from_date"
	ParamDateTo   = "to_date"
	ParamRole     = "filter_role"
	ParamUser     = "filter_user"
	ParamOrderBy  = "orderby"
	ParamOrder    = "order"
	ParamPage     = "paged"
)

var sortableColumns = map[string]struct{}{
	models.SortEventTime:  {},
	models.SortSeverity:   {},
	models.SortEventType:  {},
	models.SortObjectType: {},
}

type roleResolver interface {
	IDsByRole(ctx context.Context, role string) ([]int64, error)
}

// FilterBuilder turns raw listing parameters into an EventFilter.
type FilterBuilder struct {
	roles roleResolver
}

// NewFilterBuilder constructs a FilterBuilder backed by roles.
func NewFilterBuilder(roles roleResolver) *FilterBuilder {
	return &FilterBuilder{roles: roles}
}

// Build validates and normalizes params. Malformed dates are rejected;
// a non-positive or non-numeric user id is ignored.
func (b *FilterBuilder) Build(ctx context.Context, params url.Values) (models.EventFilter, error) {
	var filter models.EventFilter

	filter.Search = strings.TrimSpace(params.Get(ParamSearch))

	from, err := parseDateParam(params, ParamDateFrom)
	if err != nil {
		return models.EventFilter{}, err
	}
	filter.DateFrom = from

	to, err := parseDateParam(params, ParamDateTo)
	if err != nil {
		return models.EventFilter{}, err
	}
	filter.DateTo = to

	if raw := strings.TrimSpace(params.Get(ParamUser)); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.UserID = &id
		}
	}

	if role := strings.TrimSpace(params.Get(ParamRole)); role != "" {
		ids, err := b.roles.IDsByRole(ctx, role)
		if err != nil {
			return models.EventFilter{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve role filter")
		}
		filter.Role = role
		filter.RoleUserIDs = ids
	}

	return filter, nil
}

func parseDateParam(params url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		appErr := appErrors.Validation(err, "invalid "+name+", expected YYYY-MM-DD")
		appErr.Fields = map[string]string{name: "datetime=" + models.DateLayout}
		return nil, appErr
	}
	return &d, nil
}

// NormalizeSort maps the orderby/order parameters onto the sortable columns.
// Unknown columns sort by id; anything but "asc" sorts descending.
func NormalizeSort(orderBy, order string) models.EventSort {
	column := strings.ToLower(strings.TrimSpace(orderBy))
	if _, ok := sortableColumns[column]; !ok {
		column = ""
	}
	return models.EventSort{
		Column:     column,
		Descending: !strings.EqualFold(strings.TrimSpace(order), "asc"),
	}
}

// RequestedPage reads the 1-based page number, defaulting to 1.
func RequestedPage(params url.Values) int {
	page, err := strconv.Atoi(strings.TrimSpace(params.Get(ParamPage)))
	if err != nil {
		return 1
	}
	return page
}
