package config

import (
	"os"
	"strconv"
	"strings"
)

// LoadDeliveryPrices parses DELIVERY_PRICES, a comma-separated list of
// districtID:priceCents pairs (e.g. "1:500,2:700,9:1200").  Districts
// absent from the table are treated as undeliverable.  Malformed pairs
// are skipped.
func LoadDeliveryPrices() map[uint64]uint32 {
	out := map[uint64]uint32{}
	raw := os.Getenv("DELIVERY_PRICES")
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		district, err1 := strconv.ParseUint(parts[0], 10, 64)
		price, err2 := strconv.ParseUint(parts[1], 10, 32)
		if err1 != nil || err2 != nil {
			continue
		}
		out[district] = uint32(price)
	}
	return out
}
