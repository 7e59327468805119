// Package ids generates the opaque identifiers used by every collection.
//
// Identifiers are TypeIDs: a collection prefix followed by a UUIDv7 suffix,
// e.g. "auc_01h2xcejqtf2nbrexx3vqjhp41". The suffix is time ordered, so ids
// assigned within one collection sort in creation order.
package ids

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix scopes an identifier to one collection.
type Prefix string

const (
	PrefixUser    Prefix = "usr"
	PrefixProduct Prefix = "prd"
	PrefixAuction Prefix = "auc"
	PrefixBid     Prefix = "bid"
	PrefixLedger  Prefix = "led"
	PrefixAudit   Prefix = "aud"
)

// New returns a fresh identifier for the collection. It panics on an invalid
// prefix, which can only be a programming error.
func New(prefix Prefix) string {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("ids: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// Parse checks that s is a well formed identifier of the given collection.
func Parse(s string, expected Prefix) (string, error) {
	if s == "" {
		return "", fmt.Errorf("ids: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("ids: parse %q: %w", s, err)
	}
	if Prefix(tid.Prefix()) != expected {
		return "", fmt.Errorf("ids: expected prefix %q, got %q", expected, tid.Prefix())
	}
	return tid.String(), nil
}

func NewUser() string    { return New(PrefixUser) }
func NewProduct() string { return New(PrefixProduct) }
func NewAuction() string { return New(PrefixAuction) }
func NewBid() string     { return New(PrefixBid) }
func NewLedger() string  { return New(PrefixLedger) }
func NewAudit() string   { return New(PrefixAudit) }
