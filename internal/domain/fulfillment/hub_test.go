package fulfillment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippingAddress_ShipName(t *testing.T) {
	tests := []struct {
		name     string
		addr     ShippingAddress
		expected string
		err      error
	}{
		{"both names", ShippingAddress{Firstname: "Ada", Lastname: "Lovelace"}, "Ada Lovelace", nil},
		{"no normalization", ShippingAddress{Firstname: " ada", Lastname: "LOVELACE "}, " ada LOVELACE ", nil},
		{"missing first", ShippingAddress{Lastname: "Lovelace"}, "", ErrShipToNameIncomplete},
		{"missing last", ShippingAddress{Firstname: "Ada"}, "", ErrShipToNameIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.addr.ShipName()
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestProperties_UnmarshalJSON(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		var item HubLineItem
		require.NoError(t, json.Unmarshal([]byte(`{"product_id":"A"}`), &item))
		assert.Nil(t, item.Properties)
	})

	t.Run("null", func(t *testing.T) {
		var item HubLineItem
		require.NoError(t, json.Unmarshal([]byte(`{"properties":null}`), &item))
		assert.Nil(t, item.Properties)
	})

	t.Run("empty object", func(t *testing.T) {
		var item HubLineItem
		require.NoError(t, json.Unmarshal([]byte(`{"properties":{}}`), &item))
		assert.NotNil(t, item.Properties)
		assert.Empty(t, item.Properties)
	})

	t.Run("keeps order", func(t *testing.T) {
		var props Properties
		require.NoError(t, json.Unmarshal([]byte(`{"b":"2","a":"1","n":null}`), &props))
		assert.Equal(t, Properties{{"b", "2"}, {"a", "1"}, {"n", ""}}, props)

		v, ok := props.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "1", v)
		_, ok = props.Get("z")
		assert.False(t, ok)
	})

	t.Run("rejects arrays", func(t *testing.T) {
		var props Properties
		assert.Error(t, json.Unmarshal([]byte(`["a"]`), &props))
	})
}

func TestProperties_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Properties{{"z", "1"}, {"a", `q"uote`}})
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"q\"uote"}`, string(data))

	data, err = json.Marshal(Properties(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
