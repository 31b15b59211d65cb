package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed commission_tiers.yaml
var defaultCommissionTable []byte

// CommissionTable holds the tier and rank tables used by the commission calculator.
type CommissionTable struct {
	Tiers []domain.CommissionTier `yaml:"tiers"`
	Ranks []domain.AgentRank      `yaml:"ranks"`
}

// LoadCommissionTable reads the table from path, or the built-in table when path is empty.
func LoadCommissionTable(path string) (*CommissionTable, error) {
	data := defaultCommissionTable
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read commission table: %w", err)
		}
		data = b
	}
	return ParseCommissionTable(data)
}

// ParseCommissionTable decodes and validates a YAML commission table.
func ParseCommissionTable(data []byte) (*CommissionTable, error) {
	var t CommissionTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse commission table: %w", err)
	}
	if len(t.Tiers) == 0 {
		return nil, fmt.Errorf("commission table: no tiers defined")
	}
	for _, tier := range t.Tiers {
		if tier.AgentPercentage < 0 || tier.AgentPercentage > 100 {
			return nil, fmt.Errorf("commission table: tier %q agent_percentage %.2f out of range", tier.Name, tier.AgentPercentage)
		}
	}

	// Ranks are compared by level; keep them ordered from lowest to highest.
	sort.SliceStable(t.Ranks, func(i, j int) bool { return t.Ranks[i].Level < t.Ranks[j].Level })
	return &t, nil
}

// Tier finds a tier by tier name or rank name.
func (t *CommissionTable) Tier(name string) (domain.CommissionTier, bool) {
	for _, tier := range t.Tiers {
		if tier.Name == name || tier.Rank == name {
			return tier, true
		}
	}
	return domain.CommissionTier{}, false
}
