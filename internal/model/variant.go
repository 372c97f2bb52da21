package model

// Variant identifies the pool protocol that emitted an event.
type Variant string

const (
	VariantV2 Variant = "UniswapV2"
	VariantV3 Variant = "UniswapV3"
)

// EventName returns the on-chain event name carrying the price for the variant.
func (v Variant) EventName() string {
	switch v {
	case VariantV2:
		return "Sync"
	case VariantV3:
		return "Swap"
	default:
		return ""
	}
}
