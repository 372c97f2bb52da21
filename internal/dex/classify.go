package dex

import (
	"fmt"

	"priceScope/internal/model"
)

// Classify maps a log's topic count to its protocol variant.
// Sync carries only topic0; Swap adds indexed sender and recipient.
func Classify(topicCount int) (model.Variant, error) {
	switch topicCount {
	case 1:
		return model.VariantV2, nil
	case 3:
		return model.VariantV3, nil
	default:
		return "", fmt.Errorf("%w: %d topics", ErrUnknownVariant, topicCount)
	}
}
