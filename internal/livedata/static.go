package livedata

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is the on-disk form of a static data set.
type Snapshot struct {
	Market struct {
		TotalSales     int64   `yaml:"total_sales"`
		AvgSalePrice   int64   `yaml:"avg_sale_price"`
		Month          string  `yaml:"month"`
		Year           int     `yaml:"year"`
		SalesChangeYoY float64 `yaml:"sales_change_yoy"`
	} `yaml:"market"`

	Costs struct {
		ResidentialLow   int64 `yaml:"residential_low"`
		ResidentialMid   int64 `yaml:"residential_mid"`
		ResidentialHigh  int64 `yaml:"residential_high"`
		CommercialOffice int64 `yaml:"commercial_office"`
	} `yaml:"costs"`

	Neighborhoods []NeighborhoodSnapshot `yaml:"neighborhoods"`
}

// NeighborhoodSnapshot holds the figures for one neighborhood.
type NeighborhoodSnapshot struct {
	Name            string `yaml:"name"`
	TotalSales      int64  `yaml:"total_sales"`
	AvgSalePrice    int64  `yaml:"avg_sale_price"`
	AvgDaysOnMarket int    `yaml:"avg_days_on_market"`
}

// StaticProvider serves facts from an in-memory Snapshot.
type StaticProvider struct {
	snap Snapshot
}

// NewStaticProvider wraps an already decoded snapshot.
func NewStaticProvider(snap Snapshot) *StaticProvider {
	return &StaticProvider{snap: snap}
}

// LoadStaticProvider reads a YAML snapshot file.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("livedata: read snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("livedata: parse snapshot %s: %w", path, err)
	}
	return NewStaticProvider(snap), nil
}

// Fetch implements Provider. Zero-valued figures are treated as absent.
func (p *StaticProvider) Fetch(ctx context.Context, req Request) (Facts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	facts := Facts{}
	put := func(key string, v int64) {
		if v != 0 {
			facts[key] = v
		}
	}

	if req.Wants(TopicMarket) {
		m := p.snap.Market
		put(KeyMarketTotalSales, m.TotalSales)
		put(KeyMarketAvgSalePrice, m.AvgSalePrice)
		put(KeyMarketYear, int64(m.Year))
		if m.Month != "" {
			facts[KeyMarketMonth] = m.Month
		}
		if m.SalesChangeYoY != 0 {
			facts[KeyMarketSalesChangeYoY] = m.SalesChangeYoY
		}
	}

	if req.Wants(TopicCosts) {
		c := p.snap.Costs
		put(KeyCostsResidentialLow, c.ResidentialLow)
		put(KeyCostsResidentialMid, c.ResidentialMid)
		put(KeyCostsResidentialHigh, c.ResidentialHigh)
		put(KeyCostsCommercialOffice, c.CommercialOffice)
	}

	if req.Wants(TopicNeighborhood) && req.Neighborhood != "" {
		for _, n := range p.snap.Neighborhoods {
			if !strings.EqualFold(n.Name, req.Neighborhood) {
				continue
			}
			facts[KeyNeighborhoodName] = n.Name
			put(KeyNeighborhoodTotalSales, n.TotalSales)
			put(KeyNeighborhoodAvgSalePrice, n.AvgSalePrice)
			put(KeyNeighborhoodDaysOnMarket, int64(n.AvgDaysOnMarket))
			break
		}
	}

	return facts, nil
}
