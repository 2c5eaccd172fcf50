package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rizqara-backend/internal/domain"
)

// pricingFile is the on-disk shape of PRICING_FILE:
//
//	delivery:
//	  low_charge_districts: [Dhaka, Narayanganj, Gazipur]
//	  low_fee: 70
//	  high_fee: 130
type pricingFile struct {
	Delivery domain.DeliveryRules `yaml:"delivery"`
}

// LoadDeliveryRules overlays the rules in path on base. Keys missing from the
// file keep their base value.
func LoadDeliveryRules(path string, base domain.DeliveryRules) (domain.DeliveryRules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read pricing file: %w", err)
	}
	return ParseDeliveryRules(raw, base)
}

func ParseDeliveryRules(raw []byte, base domain.DeliveryRules) (domain.DeliveryRules, error) {
	pf := pricingFile{Delivery: base}
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return base, fmt.Errorf("parse pricing file: %w", err)
	}
	rules := pf.Delivery
	if rules.LowFee < 0 || rules.HighFee < 0 {
		return base, fmt.Errorf("pricing file: delivery fees cannot be negative")
	}
	if len(rules.LowChargeDistricts) == 0 {
		return base, fmt.Errorf("pricing file: low_charge_districts cannot be empty")
	}
	return rules, nil
}
