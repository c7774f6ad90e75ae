package trading_test

import (
	"testing"

	"github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/zhou-yuxin/ctp-client/pkg/trading"
	"gotest.tools/assert"
)

func TestOrderID(t *testing.T) {
	id, err := trading.OrderIDStrToType("100001@au2512")
	assert.NilError(t, err)
	assert.Equal(t, id, trading.OrderID{SysID: "100001", Code: "au2512"})
	assert.Equal(t, id.String(), "100001@au2512")

	for _, val := range []string{"100001", "@au2512", "100001@", "1@2@3"} {
		_, err = trading.OrderIDStrToType(val)
		assert.ErrorContains(t, err, "invalid order id <"+val+">")
	}
}

func TestOrderRecord_JSON(t *testing.T) {
	rec := trading.OrderRecord{
		ID:           trading.OrderID{SysID: "100001", Code: "au2512"},
		Code:         "au2512",
		Direction:    trading.DirectionShort,
		Price:        decimal.RequireFromString("780.5"),
		Volume:       -2,
		VolumeTraded: 1,
		IsActive:     true,
	}
	result, err := jsoniter.Marshal(rec)
	assert.NilError(t, err)
	assert.Equal(t, string(result), `{"id":"100001@au2512","code":"au2512","direction":"short","price":"780.5","volume":-2,"volume_traded":1,"is_active":true}`)

	var parsed trading.OrderRecord
	assert.NilError(t, jsoniter.Unmarshal(result, &parsed))
	assert.Equal(t, parsed.ID, rec.ID)
	assert.Check(t, parsed.Price.Equal(rec.Price))

	_, err = jsoniter.Marshal(trading.OrderRecord{})
	assert.ErrorContains(t, err, "fail marshal empty order id")
}
