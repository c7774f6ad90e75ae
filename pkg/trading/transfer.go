package trading

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RegisterState uint8

const (
	RegisterStateDestroyed RegisterState = iota
	RegisterStateOpen
)

var registerStateTable = codeTable[RegisterState]{
	kind:  "register state",
	codes: []byte{'0', '1'},
	names: []string{"destroyed", "open"},
}

func (s RegisterState) String() string                { return registerStateTable.name(s) }
func (s RegisterState) MarshalJSON() ([]byte, error)  { return registerStateTable.marshal(s) }
func (s *RegisterState) UnmarshalJSON(b []byte) error { return registerStateTable.unmarshal(b, s) }

// TransferRegister is an open bank account linked to the futures account.
type TransferRegister struct {
	BankName       string `json:"bankName"`
	BankID         string `json:"bankId"`
	BankBranchID   string `json:"bankBranchId"`
	BankAccount    string `json:"bankAccount"`
	Currency       string `json:"currency"`
	BrokerBranchID string `json:"brokerBranchId"`
}

// loadTransferRegisters queries the bank names, then the open registers.
func (t *tradeSession) loadTransferRegisters(ctx context.Context) error {
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.release()

	banks := &records[ContractBankField]{}
	t.bankRows = banks
	err := t.run(ctx, operation{name: "query contract banks", kind: kindQryContractBank, query: true, progress: banks.len}, func(requestID int) int {
		return t.api.ReqQryContractBank(t.creds.contractBankQuery(), requestID)
	})
	if err != nil {
		return err
	}
	names := make(map[string]string)
	for _, bank := range banks.take() {
		names[bank.BankID] = bank.BankName
	}

	rows := &records[TransferRegister]{}
	t.registerRows = rows
	err = t.run(ctx, operation{name: "query account registers", kind: kindQryAccountRegister, query: true, progress: rows.len}, func(requestID int) int {
		return t.api.ReqQryAccountregister(t.creds.accountRegisterQuery(), requestID)
	})
	if err != nil {
		return err
	}
	registers := rows.take()
	for i := range registers {
		registers[i].BankName = names[registers[i].BankID]
	}
	t.mx.Lock()
	t.registers = registers
	t.mx.Unlock()
	t.logger.Info("td: transfer registers loaded", zap.Int("banks", len(names)), zap.Int("registers", len(registers)))
	return nil
}

// findRegister selects by account when given, checking the bank name if both
// are given, and by bank name alone otherwise.
func (t *tradeSession) findRegister(bankName, bankAccount string) (TransferRegister, error) {
	if bankName == "" && bankAccount == "" {
		return TransferRegister{}, &ValidationError{Field: "bank", Value: "", Reason: "bank name or bank account is required"}
	}
	t.mx.Lock()
	defer t.mx.Unlock()
	for _, reg := range t.registers {
		if bankAccount != "" {
			if reg.BankAccount != bankAccount {
				continue
			}
			if bankName != "" && reg.BankName != bankName {
				return TransferRegister{}, &ValidationError{Field: "bank name", Value: bankName, Reason: "account " + bankAccount + " belongs to " + reg.BankName}
			}
			return reg, nil
		}
		if reg.BankName == bankName {
			return reg, nil
		}
	}
	if bankAccount != "" {
		return TransferRegister{}, &ValidationError{Field: "bank account", Value: bankAccount, Reason: "no open register"}
	}
	return TransferRegister{}, &ValidationError{Field: "bank name", Value: bankName, Reason: "no open register"}
}

// transfer moves money from the bank when positive and to the bank when negative.
func (t *tradeSession) transfer(ctx context.Context, money decimal.Decimal, password, bankName, bankAccount string) error {
	if money.IsZero() {
		return nil
	}
	reg, err := t.findRegister(bankName, bankAccount)
	if err != nil {
		return err
	}
	if err = t.acquire(); err != nil {
		return err
	}
	defer t.release()

	field := t.creds.transferField(reg, password, money.Abs())
	o := operation{name: "transfer from bank", kind: kindTransferFromBank}
	submit := func(requestID int) int {
		return t.api.ReqFromBankToFutureByFuture(field, requestID)
	}
	if money.IsNegative() {
		o = operation{name: "transfer to bank", kind: kindTransferToBank}
		submit = func(requestID int) int {
			return t.api.ReqFromFutureToBankByFuture(field, requestID)
		}
	}
	if err = t.run(ctx, o, submit); err != nil {
		return err
	}
	t.logger.Info("td: transfer done",
		zap.String("operation", o.name),
		zap.String("bank", reg.BankName),
		zap.String("amount", money.Abs().String()))
	return nil
}

func (t *tradeSession) OnRspQryContractBank(rsp *ContractBankField, info *RspInfoField, requestID int, isLast bool) {
	op := t.accept(kindQryContractBank, requestID, info)
	if op == nil {
		return
	}
	if rsp != nil {
		t.bankRows.add(*rsp)
	}
	if isLast {
		t.complete(op, nil)
	}
}

func (t *tradeSession) OnRspQryAccountregister(rsp *AccountregisterField, info *RspInfoField, requestID int, isLast bool) {
	op := t.accept(kindQryAccountRegister, requestID, info)
	if op == nil {
		return
	}
	if rsp != nil && rsp.OpenOrDestroy == RegisterStateOpen {
		t.registerRows.add(TransferRegister{
			BankID:         rsp.BankID,
			BankBranchID:   rsp.BankBranchID,
			BankAccount:    rsp.BankAccount,
			Currency:       rsp.CurrencyID,
			BrokerBranchID: rsp.BrokerBranchID,
		})
	}
	if isLast {
		t.complete(op, nil)
	}
}

// A successful transfer response is followed by the push that settles it.
func (t *tradeSession) OnRspFromBankToFutureByFuture(info *RspInfoField, requestID int, isLast bool) {
	t.accept(kindTransferFromBank, requestID, info)
}

func (t *tradeSession) OnRtnFromBankToFutureByFuture(rsp *RspTransferField) {
	t.transferred(kindTransferFromBank, "OnRtnFromBankToFutureByFuture", rsp)
}

func (t *tradeSession) OnRspFromFutureToBankByFuture(info *RspInfoField, requestID int, isLast bool) {
	t.accept(kindTransferToBank, requestID, info)
}

func (t *tradeSession) OnRtnFromFutureToBankByFuture(rsp *RspTransferField) {
	t.transferred(kindTransferToBank, "OnRtnFromFutureToBankByFuture", rsp)
}

func (t *tradeSession) transferred(kind callbackKind, callback string, rsp *RspTransferField) {
	if rsp == nil {
		return
	}
	t.mx.Lock()
	defer t.mx.Unlock()
	op := t.pendingOf(kind)
	if op == nil {
		staleCallbacks.WithLabelValues(t.name, callback).Inc()
		return
	}
	var err error
	if rsp.ErrorID != 0 {
		err = &RemoteError{ID: rsp.ErrorID, Msg: rsp.ErrorMsg}
	}
	t.settle(op, err)
}
