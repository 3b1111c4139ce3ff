package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wrapper struct {
	Name  Value[string]  `json:"name,omitzero"`
	Stock Value[int]     `json:"stock,omitzero"`
	IDs   Value[[]int64] `json:"ids,omitzero"`
	Flag  Value[bool]    `json:"flag,omitzero"`
}

func TestUnmarshal_AbsentNullAndValue(t *testing.T) {
	var p wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Shirt","stock":null,"ids":[]}`), &p))

	name, ok := p.Name.Get()
	assert.True(t, ok)
	assert.Equal(t, "Shirt", name)

	assert.True(t, p.Stock.IsSet())
	assert.True(t, p.Stock.IsNull())
	_, ok = p.Stock.Get()
	assert.False(t, ok, "null reads as absent")

	ids, ok := p.IDs.Get()
	assert.True(t, ok, "empty list is a present value")
	assert.Empty(t, ids)

	assert.False(t, p.Flag.IsSet())
	assert.False(t, p.Flag.IsNull())
}

func TestUnmarshal_FalseIsPresent(t *testing.T) {
	var p wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"flag":false}`), &p))
	v, ok := p.Flag.Get()
	assert.True(t, ok)
	assert.False(t, v)
}

func TestUnmarshal_TypeMismatch(t *testing.T) {
	var p wrapper
	assert.Error(t, json.Unmarshal([]byte(`{"stock":"ten"}`), &p))
}

func TestConstructorsAndOrElse(t *testing.T) {
	assert.Equal(t, 3, Some(3).OrElse(7))
	assert.Equal(t, 7, Null[int]().OrElse(7))
	assert.Equal(t, 7, Value[int]{}.OrElse(7))
}

func TestMarshal_OmitsAbsent(t *testing.T) {
	b, err := json.Marshal(wrapper{Name: Some("x"), Stock: Null[int]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","stock":null}`, string(b))
}
