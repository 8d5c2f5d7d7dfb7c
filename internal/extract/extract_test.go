package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "embed"
)

//go:embed testdata/lookup.html
var lookupPage []byte

//go:embed testdata/lookup_empty.html
var lookupEmptyPage []byte

//go:embed testdata/edit.html
var editPage []byte

//go:embed testdata/config.html
var configPage []byte

//go:embed testdata/orders.html
var ordersPage []byte

//go:embed testdata/orders_no_id.html
var ordersNoIdPage []byte

func TestExtractHTML(t *testing.T) {
	table := []struct {
		name     string
		page     []byte
		target   Target
		expected string
		found    bool
	}{
		{
			name:     "first labelled edit link wins",
			page:     lookupPage,
			target:   EditLink,
			expected: "/admin/etms/n2nip/edit?id=11",
			found:    true,
		},
		{
			name:   "edit link without the right classes",
			page:   lookupEmptyPage,
			target: EditLink,
		},
		{
			name:     "config link skips empty href",
			page:     editPage,
			target:   ConfigLink,
			expected: "https://c.baobaot.com/admin/etms/cinema/tms?id=11",
			found:    true,
		},
		{
			name:     "token is trimmed",
			page:     configPage,
			target:   Token,
			expected: "5f2b9c0e71d34a8b",
			found:    true,
		},
		{
			name:     "latest order is the first row",
			page:     ordersPage,
			target:   LatestOrderId,
			expected: "20931",
			found:    true,
		},
		{
			name:   "order link without an id",
			page:   ordersNoIdPage,
			target: LatestOrderId,
		},
		{
			name:   "token on the wrong page",
			page:   ordersPage,
			target: Token,
		},
		{
			name:   "empty body",
			page:   []byte{},
			target: ConfigLink,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			value, found := ExtractHTML(row.page, row.target)
			require.Equal(t, row.found, found)
			require.Equal(t, row.expected, value)
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	first, ok := ExtractHTML(lookupPage, EditLink)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		value, ok := ExtractHTML(lookupPage, EditLink)
		require.True(t, ok)
		require.Equal(t, first, value)
	}
}

func TestTargetString(t *testing.T) {
	require.Equal(t, "edit-link", EditLink.String())
	require.Equal(t, "config-link", ConfigLink.String())
	require.Equal(t, "token", Token.String())
	require.Equal(t, "latest-order-id", LatestOrderId.String())
	require.Equal(t, "unknown", Target(42).String())
}
