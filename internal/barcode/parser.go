// Package barcode decodes scanned supplier identification codes into a
// product number, lot number and expiry date.
//
// Two incompatible fixed-position formats are supported:
//   - the GS1 standard format, 01 + product(14) + 17 + date(6) + 10 + lot
//   - a vendor format with two historical sub-variants that place the lot
//     segment before the date segment
//
// Extraction is by fixed character offset after a full-string grammar
// check; each variant has its own pattern so the grammars stay auditable
// and testable in isolation.
package barcode

import (
	"regexp"
	"strconv"
	"time"

	"github.com/labstock/labstock-backend/pkg/errors"
)

// Format selects which grammar Decode applies to a raw scan.
type Format string

const (
	// FormatStandard is the GS1 application-identifier format.
	FormatStandard Format = "standard"
	// FormatVendor is the vendor format; both sub-variants are attempted.
	FormatVendor Format = "vendor"
)

// Variant names the grammar that actually matched a scan.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantVendorA  Variant = "vendor_a"
	VariantVendorB  Variant = "vendor_b"
)

// ParsedCode is the decoded content of a scanned code. It is transient:
// the caller feeds it into registration or ledger operations.
type ParsedCode struct {
	ProductNumber string    `json:"product_number"`
	LotNumber     string    `json:"lot_number"`
	ExpiryDate    time.Time `json:"expiry_date"`
	Variant       Variant   `json:"variant"`
}

var (
	// Full-string check so a structurally invalid code never reaches
	// offset extraction.
	standardPattern = regexp.MustCompile(`^01\d{14}17\d{6}10.+$`)

	// Variant A: 01 + product(14) + 10 + lot + 17 + date(6).
	// Lot alternation order matters: 6-char (letter + 5 digits),
	// 7-char (letter + 5 digits + letter), then 8-digit numeric.
	vendorAPattern = regexp.MustCompile(`^01(\d{14})10([A-Z]\d{5}|[A-Z]\d{5}[A-Z]|\d{8})17(\d{6})`)

	// Variant B: 01 + product(14) + 10 + lot(8) + 11 + 6 digits + 17 + date(6).
	vendorBPattern = regexp.MustCompile(`^01(\d{14})10([A-Z0-9]{8})11\d{6}17(\d{6})`)
)

// Decode parses a raw scanned string according to the given format.
// Malformed input yields an INVALID_CODE error; the caller decides whether
// to prompt for a re-scan.
func Decode(raw string, format Format) (*ParsedCode, error) {
	switch format {
	case FormatStandard:
		return DecodeStandard(raw)
	case FormatVendor:
		return DecodeVendor(raw)
	default:
		return nil, errors.BadRequest("unknown code format: " + string(format))
	}
}

// DecodeStandard parses a GS1 standard format code:
// 01 + product(14) + 17 + date(6) + 10 + lot(rest of string).
func DecodeStandard(raw string) (*ParsedCode, error) {
	if !standardPattern.MatchString(raw) {
		return nil, errors.InvalidCode("code does not match the GS1 format")
	}

	expiry, err := parseExpiry(raw[18:24])
	if err != nil {
		return nil, err
	}

	return &ParsedCode{
		ProductNumber: raw[2:16],
		ExpiryDate:    expiry,
		LotNumber:     raw[26:],
		Variant:       VariantStandard,
	}, nil
}

// DecodeVendor parses a vendor format code, trying Variant A first and
// falling back to Variant B. Exactly one variant can match a given code.
func DecodeVendor(raw string) (*ParsedCode, error) {
	if m := vendorAPattern.FindStringSubmatch(raw); m != nil {
		return vendorCode(m, VariantVendorA)
	}
	if m := vendorBPattern.FindStringSubmatch(raw); m != nil {
		return vendorCode(m, VariantVendorB)
	}
	return nil, errors.InvalidCode("code does not match any known vendor format")
}

func vendorCode(m []string, variant Variant) (*ParsedCode, error) {
	expiry, err := parseExpiry(m[3])
	if err != nil {
		return nil, err
	}

	return &ParsedCode{
		ProductNumber: m[1],
		LotNumber:     m[2],
		ExpiryDate:    expiry,
		Variant:       variant,
	}, nil
}

// parseExpiry parses a 6-digit YYMMDD block into a UTC midnight date.
// The year is interpreted as 20YY. A block that does not denote a real
// calendar date is rejected, never silently nulled.
func parseExpiry(block string) (time.Time, error) {
	yy, _ := strconv.Atoi(block[0:2])
	mm, _ := strconv.Atoi(block[2:4])
	dd, _ := strconv.Atoi(block[4:6])

	year := 2000 + yy
	date := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)

	// time.Date normalizes out-of-range components; a changed component
	// means the block was not a real date.
	if date.Year() != year || date.Month() != time.Month(mm) || date.Day() != dd {
		return time.Time{}, errors.InvalidCode("expiry block " + block + " is not a valid date")
	}

	return date, nil
}
