package trading_test

import (
	"testing"

	"encoding/json"

	"github.com/json-iterator/go"
	"github.com/zhou-yuxin/ctp-client/pkg/trading"
	"gotest.tools/assert"
	"gotest.tools/assert/cmp"
)

type testOrderStatusType struct {
	Status trading.OrderStatus `json:"status"`
}

func orderStatusGetMap() map[string]trading.OrderStatus {
	return map[string]trading.OrderStatus{
		"0": trading.OrderStatusAllTraded,
		"1": trading.OrderStatusPartTradedQueueing,
		"2": trading.OrderStatusPartTradedNotQueueing,
		"3": trading.OrderStatusNoTradeQueueing,
		"4": trading.OrderStatusNoTradeNotQueueing,
		"5": trading.OrderStatusCanceled,
		"a": trading.OrderStatusUnknown,
		"b": trading.OrderStatusNotTouched,
		"c": trading.OrderStatusTouched,
	}
}

func TestOrderStatus_MarshalJSON(t *testing.T) {
	var err error
	var result []byte
	var obj testOrderStatusType

	for code, val := range orderStatusGetMap() {
		jsonObj := testOrderStatusType{Status: val}
		jsonStr := `{"status":"` + code + `"}`

		result, err = json.Marshal(&jsonObj)
		assert.NilError(t, err)
		assert.Equal(t, string(result), jsonStr, "std marshal "+code)

		result, err = jsoniter.Marshal(&jsonObj)
		assert.NilError(t, err)
		assert.Equal(t, string(result), jsonStr, "jsoniter marshal "+code)

		err = json.Unmarshal([]byte(jsonStr), &obj)
		assert.NilError(t, err)
		assert.Equal(t, obj.Status, val, "std unmarshal "+code)

		err = jsoniter.Unmarshal([]byte(jsonStr), &obj)
		assert.NilError(t, err)
		assert.Equal(t, obj.Status, val, "jsoniter unmarshal "+code)
	}

	_, err = json.Marshal(&testOrderStatusType{Status: trading.OrderStatus(100)})
	assert.ErrorContains(t, err, `invalid order status code conversion: 100`)

	_, err = jsoniter.Marshal(&testOrderStatusType{Status: trading.OrderStatus(100)})
	assert.ErrorContains(t, err, `invalid order status code conversion: 100`)

	err = json.Unmarshal([]byte(`{"status":"z"}`), &obj)
	assert.ErrorContains(t, err, `unsupported order status code: 'z'`)

	err = jsoniter.Unmarshal([]byte(`{"status":"newStatus"}`), &obj)
	assert.ErrorContains(t, err, `unsupported order status: "newStatus"`)
}

func TestOrderStatus_String(t *testing.T) {
	names := map[trading.OrderStatus]string{
		trading.OrderStatusAllTraded:       "allTraded",
		trading.OrderStatusNoTradeQueueing: "noTradeQueueing",
		trading.OrderStatusCanceled:        "canceled",
		trading.OrderStatusUnknown:         "unknown",
	}
	for val, name := range names {
		assert.Equal(t, val.String(), name, "string "+name)
		resolve, err := trading.OrderStatusStrToType(name)
		assert.NilError(t, err)
		assert.Equal(t, resolve, val, "from string "+name)
	}

	defer func() {
		if r := recover(); r != nil {
		} else {
			t.Fatal("not recoverd")
		}
	}()
	_ = trading.OrderStatus(100).String()
	t.Errorf("The code did not panic")
}

func TestOrderStatus_StrToTypeError(t *testing.T) {
	_, err := trading.OrderStatusStrToType("newTime")
	assert.Error(t, err, `unsupported order status: newTime`)
}

func TestDirection_JSON(t *testing.T) {
	var d trading.Direction
	assert.NilError(t, jsoniter.Unmarshal([]byte(`"short"`), &d))
	assert.Equal(t, d, trading.DirectionShort)

	result, err := json.Marshal(trading.DirectionLong)
	assert.NilError(t, err)
	assert.Equal(t, string(result), `"long"`)

	_, err = trading.DirectionStrToType("up")
	assert.Error(t, err, `unsupported direction: up`)

	assert.Assert(t, cmp.Panics(func() { _ = trading.Direction(7).String() }))
}

func TestTimeCondition_Codes(t *testing.T) {
	result, err := json.Marshal(trading.TimeConditionGFD)
	assert.NilError(t, err)
	assert.Equal(t, string(result), `"3"`)

	var tc trading.TimeCondition
	assert.NilError(t, json.Unmarshal([]byte(`"1"`), &tc))
	assert.Equal(t, tc, trading.TimeConditionIOC)
	assert.Equal(t, tc.String(), "IOC")

	parsed, err := trading.TimeConditionStrToType("GTC")
	assert.NilError(t, err)
	assert.Equal(t, parsed, trading.TimeConditionGTC)
}
