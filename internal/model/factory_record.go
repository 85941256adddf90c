package model

// FactoryRecord is the content-addressed cache entry for (chainId, router).
type FactoryRecord struct {
	ChainID              uint64       `json:"chainId"`
	Router               string       `json:"router"`
	FactoryAddress       string       `json:"factoryAddress"`
	WrappedNativeAddress string       `json:"wrappedNativeAddress"`
	RouterFamily         RouterFamily `json:"routerFamily"`
}
