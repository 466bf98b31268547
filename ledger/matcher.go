package ledger

import (
	"strings"
	"unicode/utf8"
)

// Receipt is the payment intent extracted from a matched transaction: which
// slug was bought and the token hash of the buyer's session.
type Receipt struct {
	Slug      string
	TokenHash string
}

// Matcher decides whether a resolved message pays the configured price to the
// configured receiving address. It is pure decision logic with no I/O.
type Matcher struct {
	address string
	price   uint64
}

// NewMatcher creates a matcher for the given receiving address and price in
// base units.
func NewMatcher(address string, price uint64) *Matcher {
	return &Matcher{address: address, price: price}
}

// Match reports whether msg carries a qualifying payment and, if so, the
// receipt extracted from its indexation payload.
//
// A message qualifies when at least one output targets the receiving address
// with an amount of at least the price; overpayment is accepted, amounts are
// never summed across outputs. A qualifying message with absent or malformed
// metadata yields no match rather than an error, so a bad event can never
// take down the consumer.
func (m *Matcher) Match(msg *Message) (Receipt, bool) {
	if msg == nil {
		return Receipt{}, false
	}

	for _, tx := range msg.Payload.Transaction {
		if !m.paysEnough(tx) {
			continue
		}
		if receipt, ok := extractReceipt(tx); ok {
			return receipt, true
		}
	}
	return Receipt{}, false
}

func (m *Matcher) paysEnough(tx Transaction) bool {
	for _, out := range tx.Essence.Outputs {
		if out.SigLockedSingle.Address == m.address && out.SigLockedSingle.Amount >= m.price {
			return true
		}
	}
	return false
}

// extractReceipt decodes the transaction's indexation data as UTF-8 text and
// splits it on the first colon into slug and token hash.
func extractReceipt(tx Transaction) (Receipt, bool) {
	payload := tx.Essence.Payload
	if payload == nil || len(payload.Indexation) == 0 {
		return Receipt{}, false
	}

	data := payload.Indexation[0].Data
	if len(data) == 0 || !utf8.Valid(data) {
		return Receipt{}, false
	}

	slug, tokenHash, ok := strings.Cut(string(data), ":")
	if !ok || slug == "" || tokenHash == "" {
		return Receipt{}, false
	}
	return Receipt{Slug: slug, TokenHash: tokenHash}, true
}
