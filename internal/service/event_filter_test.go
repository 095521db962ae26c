package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-log-api/internal/models"
)

func TestFilterBuilderBuild(t *testing.T) {
	roles := &fakeDirectoryRepo{roles: map[string][]int64{"editor": {3, 4}}}
	builder := NewFilterBuilder(roles)

	filter, err := builder.Build(context.Background(), url.Values{
		ParamSearch:   {"  login  "},
		ParamDateFrom: {"2024-01-01"},
		ParamDateTo:   {"2024-01-31"},
		ParamUser:     {"42"},
		ParamRole:     {"editor"},
	})
	require.NoError(t, err)
	assert.Equal(t, "login", filter.Search)
	assert.Equal(t, "2024-01-01", filter.DateFrom.Format(models.DateLayout))
	assert.Equal(t, "2024-01-31", filter.DateTo.Format(models.DateLayout))
	assert.Equal(t, int64(42), *filter.UserID)
	assert.True(t, filter.HasRole())
	assert.Equal(t, []int64{3, 4}, filter.RoleUserIDs)
}

func TestFilterBuilderIgnoresBadUserID(t *testing.T) {
	builder := NewFilterBuilder(&fakeDirectoryRepo{})

	for _, raw := range []string{"abc", "0", "-3"} {
		filter, err := builder.Build(context.Background(), url.Values{ParamUser: {raw}})
		require.NoError(t, err)
		assert.Nil(t, filter.UserID, raw)
	}
}

func TestFilterBuilderEmptyRoleResolution(t *testing.T) {
	builder := NewFilterBuilder(&fakeDirectoryRepo{})

	filter, err := builder.Build(context.Background(), url.Values{ParamRole: {"subscriber"}})
	require.NoError(t, err)
	assert.True(t, filter.HasRole())
	assert.Empty(t, filter.RoleUserIDs)
}

func TestFilterBuilderRoleLookupError(t *testing.T) {
	builder := NewFilterBuilder(&fakeDirectoryRepo{err: errors.New("boom")})

	_, err := builder.Build(context.Background(), url.Values{ParamRole: {"editor"}})
	require.Error(t, err)
}

func TestNormalizeSort(t *testing.T) {
	assert.Equal(t, models.EventSort{Column: "", Descending: true}, NormalizeSort("", ""))
	assert.Equal(t, models.EventSort{Column: "severity", Descending: false}, NormalizeSort("Severity", "asc"))
	assert.Equal(t, models.EventSort{Column: "event_time", Descending: true}, NormalizeSort("event_time", "sideways"))
	assert.Equal(t, models.EventSort{Column: "", Descending: false}, NormalizeSort("message; DROP TABLE", "ASC"))
}

func TestRequestedPage(t *testing.T) {
	assert.Equal(t, 1, RequestedPage(url.Values{}))
	assert.Equal(t, 1, RequestedPage(url.Values{ParamPage: {"two"}}))
	assert.Equal(t, 3, RequestedPage(url.Values{ParamPage: {"3"}}))
	assert.Equal(t, 2305843009213693952, RequestedPage(url.Values{ParamPage: {"2305843009213693952"}}))

	window := models.NewPageWindow(RequestedPage(url.Values{ParamPage: {"2305843009213693952"}}), 5)
	assert.Positive(t, window.Offset)
}
