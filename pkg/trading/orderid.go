package trading

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// OrderID identifies an accepted order. Exchange order ids are only unique
// together with the instrument code, so both travel as "<sysId>@<code>".
type OrderID struct {
	SysID string
	Code  string
}

func (id OrderID) String() string {
	return id.SysID + "@" + id.Code
}

func (id OrderID) MarshalJSON() ([]byte, error) {
	if id.SysID == "" || id.Code == "" {
		return nil, errors.New("fail marshal empty order id")
	}
	return []byte(`"` + id.String() + `"`), nil
}

func (id *OrderID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("unsupported order id: " + string(data))
	}
	v, err := OrderIDStrToType(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func OrderIDStrToType(val string) (OrderID, error) {
	items := strings.Split(val, "@")
	if len(items) != 2 || items[0] == "" || items[1] == "" {
		return OrderID{}, &ValidationError{Field: "order id", Value: val, Reason: "expected <sysId>@<code>"}
	}
	return OrderID{SysID: items[0], Code: items[1]}, nil
}

func orderIDOf(order *OrderField) OrderID {
	return OrderID{SysID: order.OrderSysID, Code: order.InstrumentID}
}

// formatOrderRef renders a local order reference the way the native API pads it.
func formatOrderRef(ref int) string {
	return fmt.Sprintf("%12d", ref)
}

// parseOrderRef returns -1 for an empty reference.
func parseOrderRef(val string) (int, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return -1, nil
	}
	ref, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.WithMessage(err, "invalid order ref "+strconv.Quote(val))
	}
	return ref, nil
}
