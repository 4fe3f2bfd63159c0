package market

import (
	"errors"
	"strings"
)

var ErrUnknownTier = errors.New("unknown supply tier")

// Tier is one of the fixed supply-chain choices a team can buy each round.
type Tier int

const (
	TierInvalid Tier = iota - 1 // unrecognized value read back from storage
	TierNone                    // no pending choice
	TierEthical
	TierStandard
	TierDirty
)

// TierNoneID is the sentinel stored when a team has no pending choice.
const TierNoneID = "None"

// Supplier models one purchasable tier in the catalog.
type Supplier struct {
	Tier        Tier
	ID          string // display id, e.g. "Tier A (Ethical)"
	UnitCost    int    // paid every round the tier is bought
	DebtDelta   int    // carbon debt added (negative reduces debt)
	BaseRevenue int    // revenue before event modifiers
}

var catalog = [...]Supplier{
	{Tier: TierEthical, ID: "Tier A (Ethical)", UnitCost: 1200, DebtDelta: -1, BaseRevenue: 1000},
	{Tier: TierStandard, ID: "Tier B (Standard)", UnitCost: 800, DebtDelta: 1, BaseRevenue: 1000},
	{Tier: TierDirty, ID: "Tier C (Dirty)", UnitCost: 500, DebtDelta: 3, BaseRevenue: 1000},
}

// Catalog returns a copy of the supplier catalog, cleanest tier first.
func Catalog() []Supplier {
	out := make([]Supplier, len(catalog))
	copy(out, catalog[:])
	return out
}

// Lookup returns the supplier for t; ok is false for TierNone and TierInvalid.
func Lookup(t Tier) (Supplier, bool) {
	for _, s := range catalog {
		if s.Tier == t {
			return s, true
		}
	}
	return Supplier{}, false
}

// ParseTier maps a tier id to its Tier. The "None" sentinel (and the empty
// string) parse to TierNone. Matching is exact apart from surrounding space.
func ParseTier(id string) (Tier, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == TierNoneID {
		return TierNone, nil
	}
	for _, s := range catalog {
		if s.ID == id {
			return s.Tier, nil
		}
	}
	return TierInvalid, ErrUnknownTier
}

func (t Tier) String() string {
	if s, ok := Lookup(t); ok {
		return s.ID
	}
	if t == TierNone {
		return TierNoneID
	}
	return "Invalid"
}

// Valid reports whether t names a catalog entry.
func (t Tier) Valid() bool {
	_, ok := Lookup(t)
	return ok
}

// MarshalText encodes t as its catalog id.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts what MarshalText produces. "Invalid" decodes to
// TierInvalid so a round trip is lossless.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		*t = TierInvalid
		if strings.TrimSpace(string(b)) == TierInvalid.String() {
			return nil
		}
		return err
	}
	*t = parsed
	return nil
}
