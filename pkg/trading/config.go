package trading

import "time"

const (
	defaultTimeout       = 10 * time.Second
	defaultQueryInterval = time.Second
	defaultDataDir       = ".ctp_client_data"
)

// Config configures both sessions of a Client. Zero durations and an empty
// DataDir take their defaults.
type Config struct {
	BrokerID string
	AppID    string
	AuthCode string
	UserID   string
	Password string

	// Timeout bounds every wait for a callback.
	Timeout time.Duration
	// QueryInterval is the minimum spacing of query requests; negative disables it.
	QueryInterval time.Duration
	// DataDir holds the instrument cache.
	DataDir string
	// Now is the clock dating the instrument cache.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.QueryInterval == 0 {
		c.QueryInterval = defaultQueryInterval
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func (c Config) credentials() credentials {
	return credentials{
		BrokerID: c.BrokerID,
		AppID:    c.AppID,
		AuthCode: c.AuthCode,
		UserID:   c.UserID,
		Password: c.Password,
	}
}
