package trading

// Field structs of the native API. Field names follow the native names so the
// bridge sidecar can forward them unchanged; enum fields translate to and from
// native one-character codes in their own JSON methods.

type RspInfoField struct {
	ErrorID  int
	ErrorMsg string
}

type ReqAuthenticateField struct {
	BrokerID string
	UserID   string
	AppID    string
	AuthCode string
}

type ReqUserLoginField struct {
	BrokerID string
	UserID   string
	Password string
}

type RspUserLoginField struct {
	TradingDay  string
	BrokerID    string
	UserID      string
	FrontID     int
	SessionID   int
	MaxOrderRef string
}

type SettlementInfoConfirmField struct {
	BrokerID   string
	InvestorID string
}

type SpecificInstrumentField struct {
	InstrumentID string
}

type DepthMarketDataField struct {
	TradingDay         string
	InstrumentID       string
	ExchangeID         string
	LastPrice          float64
	PreSettlementPrice float64
	PreClosePrice      float64
	PreOpenInterest    float64
	OpenPrice          float64
	HighestPrice       float64
	LowestPrice        float64
	Volume             int
	Turnover           float64
	OpenInterest       float64
	ClosePrice         float64
	SettlementPrice    float64
	UpperLimitPrice    float64
	LowerLimitPrice    float64
	UpdateTime         string
	UpdateMillisec     int
	BidPrice1          float64
	BidVolume1         int
	AskPrice1          float64
	AskVolume1         int
	BidPrice2          float64
	BidVolume2         int
	AskPrice2          float64
	AskVolume2         int
	BidPrice3          float64
	BidVolume3         int
	AskPrice3          float64
	AskVolume3         int
	BidPrice4          float64
	BidVolume4         int
	AskPrice4          float64
	AskVolume4         int
	BidPrice5          float64
	BidVolume5         int
	AskPrice5          float64
	AskVolume5         int
}

type QryInstrumentField struct {
	InstrumentID string
	ExchangeID   string
}

type InstrumentField struct {
	InstrumentID     string
	InstrumentName   string
	ExchangeID       string
	VolumeMultiple   int
	PriceTick        float64
	ExpireDate       string
	IsTrading        int
	OptionsType      OptionType
	StrikePrice      float64
	LongMarginRatio  float64
	ShortMarginRatio float64
}

type QryTradingAccountField struct {
	BrokerID   string
	InvestorID string
	CurrencyID string
	BizType    string
}

type TradingAccountField struct {
	BrokerID      string
	AccountID     string
	Balance       float64
	CurrMargin    float64
	Available     float64
	WithdrawQuota float64
}

type QryOrderField struct {
	BrokerID   string
	InvestorID string
}

type OrderField struct {
	BrokerID            string
	InvestorID          string
	InstrumentID        string
	ExchangeID          string
	OrderRef            string
	FrontID             int
	SessionID           int
	OrderSysID          string
	Direction           Side
	CombOffsetFlag      OffsetFlag
	OrderPriceType      PriceType
	TimeCondition       TimeCondition
	VolumeCondition     VolumeCondition
	LimitPrice          float64
	VolumeTotalOriginal int
	VolumeTraded        int
	MinVolume           int
	OrderStatus         OrderStatus
	OrderSubmitStatus   OrderSubmitStatus
	StatusMsg           string
}

type QryInvestorPositionField struct {
	BrokerID   string
	InvestorID string
}

type InvestorPositionField struct {
	InstrumentID  string
	PosiDirection PositionDirection
	Position      int
	UseMargin     float64
	OpenCost      float64
}

type InputOrderField struct {
	BrokerID            string
	InvestorID          string
	ExchangeID          string
	InstrumentID        string
	OrderRef            string
	Direction           Side
	CombOffsetFlag      OffsetFlag
	CombHedgeFlag       string
	OrderPriceType      PriceType
	TimeCondition       TimeCondition
	VolumeCondition     VolumeCondition
	LimitPrice          float64
	VolumeTotalOriginal int
	MinVolume           int
	ContingentCondition string
	ForceCloseReason    string
}

type InputOrderActionField struct {
	BrokerID     string
	InvestorID   string
	UserID       string
	ExchangeID   string
	InstrumentID string
	OrderSysID   string
	ActionFlag   string
}

type QryContractBankField struct {
	BrokerID string
}

type ContractBankField struct {
	BrokerID string
	BankID   string
	BankName string
}

type QryAccountregisterField struct {
	BrokerID  string
	AccountID string
}

type AccountregisterField struct {
	BrokerID       string
	AccountID      string
	BankID         string
	BankBranchID   string
	BankAccount    string
	BrokerBranchID string
	CurrencyID     string
	OpenOrDestroy  RegisterState
}

type ReqTransferField struct {
	BrokerID         string
	BrokerBranchID   string
	BankID           string
	BankBranchID     string
	BankAccount      string
	AccountID        string
	Password         string
	CurrencyID       string
	TradeAmount      float64
	VerifyCertNoFlag string
}

type RspTransferField struct {
	BankID      string
	BankAccount string
	AccountID   string
	TradeAmount float64
	ErrorID     int
	ErrorMsg    string
}
