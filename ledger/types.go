// Package ledger consumes the node's output event stream and decides which
// transactions count as payments for gated content.
package ledger

import "encoding/json"

// Event is one raw frame from the node's event stream: a notification that a
// watched address received a new output. Payload is itself a JSON document
// carrying the message id; it stays opaque until the confirmation worker
// resolves it.
type Event struct {
	Topic   string `json:"topic,omitempty"`
	Payload string `json:"payload"`
}

// EventRef is the decoded Event payload.
type EventRef struct {
	MessageID string `json:"messageId"`
}

// Ref decodes the event's payload into a message reference.
func (e *Event) Ref() (EventRef, error) {
	var ref EventRef
	err := json.Unmarshal([]byte(e.Payload), &ref)
	return ref, err
}

// ParseEvent decodes a raw event frame.
func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Message is a resolved ledger message as returned by the node.
type Message struct {
	Payload MessagePayload `json:"payload"`
}

// MessagePayload wraps the message's transaction entries.
type MessagePayload struct {
	Transaction []Transaction `json:"transaction"`
}

// Transaction is one transaction entry within a message.
type Transaction struct {
	Essence Essence `json:"essence"`
}

// Essence carries the transaction outputs and the optional embedded
// indexation payload.
type Essence struct {
	Outputs []Output        `json:"outputs"`
	Payload *EssencePayload `json:"payload,omitempty"`
}

// Output is a single transaction output.
type Output struct {
	SigLockedSingle SigLockedSingleOutput `json:"signature_locked_single"`
}

// SigLockedSingleOutput is the address/amount pair of an output.
type SigLockedSingleOutput struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// EssencePayload holds the indexation entries attached to a transaction.
type EssencePayload struct {
	Indexation []Indexation `json:"indexation"`
}

// Indexation is arbitrary bytes attached to a transaction. Data is
// base64-encoded on the wire.
type Indexation struct {
	Index string `json:"index,omitempty"`
	Data  []byte `json:"data"`
}
