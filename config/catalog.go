package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RewardKind describes how a redeemed reward is fulfilled.
type RewardKind string

const (
	RewardKindGiftCard       RewardKind = "gift_card"
	RewardKindCashTransfer   RewardKind = "cash_transfer"
	RewardKindDiscountBundle RewardKind = "discount_bundle"
)

// RewardDef is one claimable reward. Catalog entries are configuration data,
// keyed by a stable id rather than display title.
type RewardDef struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Kind        RewardKind `json:"kind"`
	CostPoints  int        `json:"cost_points"`
	Description string     `json:"description"`
}

// Catalog is the validated set of claimable rewards.
type Catalog struct {
	byID    map[string]RewardDef
	ordered []RewardDef
}

// Lookup returns the reward with the given id.
func (c *Catalog) Lookup(id string) (RewardDef, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// All returns rewards in catalog order.
func (c *Catalog) All() []RewardDef {
	out := make([]RewardDef, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// defaultRewards mirrors the product's built-in redemption offers; a JSON file
// at RewardCatalogPath replaces them entirely when present.
var defaultRewards = []RewardDef{
	{ID: "amazon-gift-card-5", Title: "$5 Amazon Gift Card", Kind: RewardKindGiftCard, CostPoints: 500, Description: "Digital gift card delivered by email."},
	{ID: "amazon-gift-card-10", Title: "$10 Amazon Gift Card", Kind: RewardKindGiftCard, CostPoints: 1000, Description: "Digital gift card delivered by email."},
	{ID: "cash-transfer-10", Title: "$10 Cash Transfer", Kind: RewardKindCashTransfer, CostPoints: 1500, Description: "Bank transfer to the account on file."},
	{ID: "tool-discount-bundle", Title: "Tool Discount Bundle", Kind: RewardKindDiscountBundle, CostPoints: 750, Description: "Curated discount codes for popular tools."},
}

// LoadCatalog reads and validates the reward catalog. A missing file falls
// back to the built-in defaults; an invalid file is a startup error.
func LoadCatalog(path string) (*Catalog, error) {
	defs := defaultRewards
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			var fileDefs []RewardDef
			if err := json.Unmarshal(b, &fileDefs); err != nil {
				return nil, fmt.Errorf("reward catalog %s: %w", path, err)
			}
			defs = fileDefs
		}
	}
	return buildCatalog(defs)
}

func buildCatalog(defs []RewardDef) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("reward catalog is empty")
	}
	c := &Catalog{byID: make(map[string]RewardDef, len(defs))}
	for i, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("reward catalog entry %d: missing id", i)
		}
		if d.Title == "" {
			return nil, fmt.Errorf("reward %q: missing title", d.ID)
		}
		switch d.Kind {
		case RewardKindGiftCard, RewardKindCashTransfer, RewardKindDiscountBundle:
		default:
			return nil, fmt.Errorf("reward %q: unknown kind %q", d.ID, d.Kind)
		}
		if d.CostPoints <= 0 {
			return nil, fmt.Errorf("reward %q: cost must be positive, got %d", d.ID, d.CostPoints)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("reward %q: duplicate id", d.ID)
		}
		c.byID[d.ID] = d
		c.ordered = append(c.ordered, d)
	}
	return c, nil
}
