package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"pendiente":    OrderStatusPending,
		" Completado ": OrderStatusCompleted,
		"ENVIADO":      OrderStatusShipped,
		"shipped":      OrderStatusShipped,
	}
	for in, want := range cases {
		got, ok := ParseOrderStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseOrderStatus("cancelado")
	assert.False(t, ok)
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderStatus("Pendiente").IsTerminal())
	assert.True(t, OrderStatus("Completado").IsTerminal())
	assert.True(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatus("???").IsTerminal())
}

func TestSplitOptions(t *testing.T) {
	assert.Equal(t, []string{"S", "M", "L"}, SplitOptions(" S,M, ,L,"))
	assert.Equal(t, []string{}, SplitOptions(""))
}

func TestStringList_Scan(t *testing.T) {
	var s StringList

	require.NoError(t, s.Scan(`["a.jpg","b.jpg"]`))
	assert.Equal(t, StringList{"a.jpg", "b.jpg"}, s)

	// 古い行は単一のURL
	require.NoError(t, s.Scan([]byte("img/polo.jpg")))
	assert.Equal(t, StringList{"img/polo.jpg"}, s)

	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)

	assert.Error(t, s.Scan(42))
}

func TestStringList_ValueAndJSON(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var s StringList
	require.NoError(t, json.Unmarshal([]byte(`"x.png"`), &s))
	assert.Equal(t, StringList{"x.png"}, s)
	require.NoError(t, json.Unmarshal([]byte(`["", "y.png"]`), &s))
	assert.Equal(t, "y.png", s.First())
}
