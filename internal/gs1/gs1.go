// Package gs1 parses scanned GS1-128 barcodes into a canonical
// representation and matches them against stored box codes.
//
// Only the Application Identifiers used on box labels are handled:
// (01) 14-digit GTIN, (3100) net weight in kg with 3 implied decimals,
// (3200) net weight in lb, and (10) variable-length lot. Scanners deliver
// the code with or without parentheses, so both layouts are accepted; the
// canonical form is always the parenthesized one.
package gs1

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidFormat means the scanned string matches none of the known layouts.
	ErrInvalidFormat = errors.New("gs1: invalid barcode format")
	// ErrNotFound means no available box carries the scanned code.
	ErrNotFound = errors.New("gs1: no box matches the scanned code")
	// ErrAmbiguous means more than one available box carries the scanned code.
	ErrAmbiguous = errors.New("gs1: scanned code matches more than one box")
)

// Weight AI values carried in a Code.
const (
	WeightAIKg = "3100"
	WeightAILb = "3200"
)

const lbToKg = 0.45359237

// Code is the parsed, canonical form of a GS1-128 box label.
type Code struct {
	GTIN      string // 14 digits
	WeightAI  string // "3100" (kg) or "3200" (lb)
	RawWeight string // 6 digits as printed
	Lot       string
}

// The four accepted layouts, tried strictly in this order: the first match
// wins, so an unparenthesized kg code is never re-read as a lb code.
var patterns = []struct {
	weightAI string
	re       *regexp.Regexp
}{
	{WeightAIKg, regexp.MustCompile(`^01(\d{14})3100(\d{6})10(.+)$`)},
	{WeightAILb, regexp.MustCompile(`^01(\d{14})3200(\d{6})10(.+)$`)},
	{WeightAIKg, regexp.MustCompile(`^\(01\)(\d{14})\(3100\)(\d{6})\(10\)(.+)$`)},
	{WeightAILb, regexp.MustCompile(`^\(01\)(\d{14})\(3200\)(\d{6})\(10\)(.+)$`)},
}

// Parse reads a scanned string into a Code. The input may carry
// parentheses or not; parsing the canonical form again is a no-op
// (Parse(c.Canonical()).Canonical() == c.Canonical()).
func Parse(scanned string) (*Code, error) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(scanned)
		if m == nil {
			continue
		}
		return &Code{
			GTIN:      m[1],
			WeightAI:  p.weightAI,
			RawWeight: m[2],
			Lot:       m[3],
		}, nil
	}
	return nil, ErrInvalidFormat
}

// Canonical rebuilds the parenthesized string form.
func (c *Code) Canonical() string {
	return fmt.Sprintf("(01)%s(%s)%s(10)%s", c.GTIN, c.WeightAI, c.RawWeight, c.Lot)
}

// WeightKg returns the encoded net weight in kilograms. The kg AI carries
// 3 implied decimals; the lb AI carries a whole-pound value that is
// converted at the standard factor.
func (c *Code) WeightKg() decimal.Decimal {
	raw, err := decimal.NewFromString(c.RawWeight)
	if err != nil {
		return decimal.Zero
	}
	if c.WeightAI == WeightAILb {
		return raw.Mul(decimal.NewFromFloat(lbToKg)).Round(3)
	}
	return raw.Shift(-3)
}

// Match canonicalizes the scanned string and compares it against the given
// stored codes (already restricted by the caller to available boxes on the
// selected pallet). Stored codes are canonicalized too, so the two sides may
// use different layouts; stored codes that fail to parse are skipped rather
// than failing the whole scan. Exactly one hit is required: zero hits is
// ErrNotFound and multiple hits is ErrAmbiguous — a match is never silently
// picked.
func Match(scanned string, stored []string) (int, error) {
	code, err := Parse(scanned)
	if err != nil {
		return -1, err
	}
	canonical := code.Canonical()

	found := -1
	for i, s := range stored {
		sc, parseErr := Parse(s)
		if parseErr != nil || sc.Canonical() != canonical {
			continue
		}
		if found >= 0 {
			return -1, ErrAmbiguous
		}
		found = i
	}
	if found < 0 {
		return -1, ErrNotFound
	}
	return found, nil
}
