package constant

import "time"

const (
	ProductionEnvironment  = "production"
	DevelopmentEnvironment = "development"
)

const (
	LighterMainnet = "mainnet"
	LighterTestnet = "testnet"

	MainnetBaseURL = "https://mainnet.zklighter.elliot.ai"
	TestnetBaseURL = "https://testnet.zklighter.elliot.ai"

	MainnetStreamURL = "wss://mainnet.zklighter.elliot.ai/stream"
	TestnetStreamURL = "wss://testnet.zklighter.elliot.ai/stream"

	MainnetChainID uint32 = 304
	TestnetChainID uint32 = 300
)

const (
	// Fallback precisions for markets missing from the order book listing.
	DefaultSizeDecimals  int32 = 4
	DefaultPriceDecimals int32 = 2

	// Percent, i.e. 0.5 means 0.5%.
	DefaultSlippagePercent = "0.5"

	DefaultAuthTokenExpiry = 1 * time.Hour
	MaxAuthTokenExpiry     = 8 * time.Hour
)

// BaseURL returns the REST base URL for a Lighter environment.
func BaseURL(environment string) string {
	if environment == LighterTestnet {
		return TestnetBaseURL
	}

	return MainnetBaseURL
}

// StreamURL returns the websocket stream URL for a Lighter environment.
func StreamURL(environment string) string {
	if environment == LighterTestnet {
		return TestnetStreamURL
	}

	return MainnetStreamURL
}

// ChainID returns the zk-chain id used by the signing SDK.
func ChainID(environment string) uint32 {
	if environment == LighterTestnet {
		return TestnetChainID
	}

	return MainnetChainID
}
