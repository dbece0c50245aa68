package qa

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Leaf positions evaluated per bank.
const (
	MinLeafIndex = 11
	MaxLeafIndex = 50
)

// LeafBank names a collimator leaf bank metric family.
type LeafBank string

const (
	LeafBankA         LeafBank = "mlcLeavesA"
	LeafBankB         LeafBank = "mlcLeavesB"
	LeafBankBacklashA LeafBank = "mlcBacklashA"
	LeafBankBacklashB LeafBank = "mlcBacklashB"
)

// LeafBanks lists banks in evaluation order.
var LeafBanks = []LeafBank{LeafBankA, LeafBankB, LeafBankBacklashA, LeafBankBacklashB}

// IsValid returns true when the bank is supported.
func (b LeafBank) IsValid() bool {
	switch b {
	case LeafBankA, LeafBankB, LeafBankBacklashA, LeafBankBacklashB:
		return true
	default:
		return false
	}
}

// LeafIndex is a validated leaf position.
type LeafIndex int

// NewLeafIndex validates a raw leaf position.
func NewLeafIndex(n int) (LeafIndex, error) {
	if n < MinLeafIndex || n > MaxLeafIndex {
		return 0, fmt.Errorf("%w: %d", ErrLeafOutOfRange, n)
	}
	return LeafIndex(n), nil
}

// Valid reports whether the index lies in 11..50.
func (i LeafIndex) Valid() bool {
	return i >= MinLeafIndex && i <= MaxLeafIndex
}

// LeafValues holds one value per leaf position of a bank.
type LeafValues map[LeafIndex]float64

// Indices returns the populated positions in ascending order.
func (v LeafValues) Indices() []LeafIndex {
	out := make([]LeafIndex, 0, len(v))
	for idx := range v {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes as {"11": v, ...}.
func (v LeafValues) MarshalJSON() ([]byte, error) {
	raw := make(map[string]float64, len(v))
	for idx, value := range v {
		raw[strconv.Itoa(int(idx))] = value
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes and validates leaf positions.
func (v *LeafValues) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(LeafValues, len(raw))
	for key, value := range raw {
		n, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrLeafOutOfRange, key)
		}
		idx, err := NewLeafIndex(n)
		if err != nil {
			return err
		}
		out[idx] = value
	}
	*v = out
	return nil
}

// Leaves groups leaf values by bank.
type Leaves map[LeafBank]LeafValues

// Set stores a leaf value, rejecting unknown banks and out-of-range positions.
func (l Leaves) Set(bank LeafBank, index int, value float64) error {
	if !bank.IsValid() {
		return ErrUnknownLeafBank
	}
	idx, err := NewLeafIndex(index)
	if err != nil {
		return err
	}
	values, ok := l[bank]
	if !ok {
		values = make(LeafValues)
		l[bank] = values
	}
	values[idx] = value
	return nil
}

// Validate checks banks and positions.
func (l Leaves) Validate() error {
	for bank, values := range l {
		if !bank.IsValid() {
			return ErrUnknownLeafBank
		}
		for idx := range values {
			if !idx.Valid() {
				return fmt.Errorf("%w: %d", ErrLeafOutOfRange, int(idx))
			}
		}
	}
	return nil
}

// Clone copies all banks.
func (l Leaves) Clone() Leaves {
	if l == nil {
		return nil
	}
	out := make(Leaves, len(l))
	for bank, values := range l {
		copied := make(LeafValues, len(values))
		for idx, value := range values {
			copied[idx] = value
		}
		out[bank] = copied
	}
	return out
}
