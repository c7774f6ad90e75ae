package trading

type actionKind uint8

const (
	actionNone actionKind = iota
	actionNewOrder
	actionCancel
)

// orderAction interprets order pushes for the order being placed or
// cancelled. It lives in the pending operation, so at most one exists per
// trading session and it disappears with its caller.
type orderAction struct {
	kind actionKind

	// new order key
	frontID       int
	sessionID     int
	orderRef      int
	timeCondition TimeCondition

	// cancel key
	target OrderID

	// outcome
	tradedVolume int
	orderID      OrderID
}

func newOrderInsertAction(frontID, sessionID, orderRef int, tc TimeCondition) *orderAction {
	return &orderAction{
		kind:          actionNewOrder,
		frontID:       frontID,
		sessionID:     sessionID,
		orderRef:      orderRef,
		timeCondition: tc,
	}
}

func newOrderCancelAction(target OrderID) *orderAction {
	return &orderAction{kind: actionCancel, target: target}
}

// resolve reports whether order settles the action, and with which error.
func (a *orderAction) resolve(order *OrderField) (bool, error) {
	switch a.kind {
	case actionNewOrder:
		return a.resolveNewOrder(order)
	case actionCancel:
		return a.resolveCancel(order)
	}
	return false, nil
}

func (a *orderAction) resolveNewOrder(order *OrderField) (bool, error) {
	ref, err := parseOrderRef(order.OrderRef)
	if err != nil || ref != a.orderRef || order.FrontID != a.frontID || order.SessionID != a.sessionID {
		return false, nil
	}
	if order.OrderStatus == OrderStatusUnknown {
		return false, nil
	}
	if order.OrderSubmitStatus == SubmitStatusInsertRejected {
		return true, &RemoteError{Msg: order.StatusMsg}
	}
	if order.TimeCondition != a.timeCondition {
		violation("OnRtnOrder", "order %d pushed with time condition %s, submitted %s", a.orderRef, order.TimeCondition, a.timeCondition)
	}

	switch a.timeCondition {
	case TimeConditionIOC:
		if !order.OrderStatus.isFinished() {
			return false, nil
		}
		a.tradedVolume = order.VolumeTraded
		return true, nil
	case TimeConditionGFD:
		if order.OrderSubmitStatus != SubmitStatusAccepted {
			return false, nil
		}
		if !order.OrderStatus.isBooked() {
			violation("OnRtnOrder", "accepted order %d with status %s", a.orderRef, order.OrderStatus)
		}
		if order.OrderSysID == "" {
			violation("OnRtnOrder", "accepted order %d without exchange order id", a.orderRef)
		}
		a.orderID = orderIDOf(order)
		return true, nil
	}
	violation("OnRtnOrder", "unsupported time condition %s", a.timeCondition)
	return false, nil
}

func (a *orderAction) resolveCancel(order *OrderField) (bool, error) {
	if orderIDOf(order) != a.target {
		return false, nil
	}
	if order.OrderSubmitStatus == SubmitStatusCancelRejected {
		return true, &RemoteError{Msg: order.StatusMsg}
	}
	// all traded means the order finished before the cancel applied
	if order.OrderStatus.isFinished() {
		return true, nil
	}
	return false, nil
}
