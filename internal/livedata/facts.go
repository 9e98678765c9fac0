package livedata

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Well-known fact keys.
const (
	KeyMarketTotalSales     = "market.total_sales"
	KeyMarketAvgSalePrice   = "market.avg_sale_price"
	KeyMarketMonth          = "market.month"
	KeyMarketYear           = "market.year"
	KeyMarketSalesChangeYoY = "market.sales_change_yoy"

	KeyCostsResidentialLow   = "costs.residential_low"
	KeyCostsResidentialMid   = "costs.residential_mid"
	KeyCostsResidentialHigh  = "costs.residential_high"
	KeyCostsCommercialOffice = "costs.commercial_office"

	KeyNeighborhoodName         = "neighborhood.name"
	KeyNeighborhoodTotalSales   = "neighborhood.total_sales"
	KeyNeighborhoodAvgSalePrice = "neighborhood.avg_sale_price"
	KeyNeighborhoodDaysOnMarket = "neighborhood.avg_days_on_market"
)

// Facts is a flat map of live figures keyed by the Key* constants.
// A nil Facts is valid and empty.
type Facts map[string]any

// Has reports whether any key with the given topic prefix is present.
func (f Facts) Has(topic Topic) bool {
	prefix := string(topic) + "."
	for k := range f {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// String returns the value for key formatted as text.
func (f Facts) String(key string) (string, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	default:
		if n, ok := f.Float(key); ok {
			return strconv.FormatFloat(n, 'f', -1, 64), true
		}
		return "", false
	}
}

// Float returns a numeric value for key.
func (f Facts) Float(key string) (float64, bool) {
	switch t := f[key].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", ""), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Int returns a numeric value for key rounded to the nearest integer.
func (f Facts) Int(key string) (int64, bool) {
	n, ok := f.Float(key)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return int64(math.Round(n)), true
}

// Merge copies every key of other into f, returning f (allocated if nil).
func (f Facts) Merge(other Facts) Facts {
	if f == nil {
		f = make(Facts, len(other))
	}
	for k, v := range other {
		f[k] = v
	}
	return f
}
