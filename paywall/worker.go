package paywall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tangleworks/slugpay/ledger"
)

// Resolver resolves a message id into a full ledger message. Implemented by
// ledger.NodeClient.
type Resolver interface {
	ResolveMessage(ctx context.Context, id string) (*ledger.Message, error)
}

// Dispatcher pushes the one-shot payment_received event to a live connection.
// Implemented by notify.Hub.
type Dispatcher interface {
	Notify(connID string)
}

// Worker is the single consumer of the event queue. It resolves each event
// into a full message, runs the matcher and, on a match, records the
// entitlement and notifies the waiting connection. It is the only writer of
// the entitlement store and the session registry.
//
// Failed or unmatched items are logged and dropped, never requeued; a
// malformed event must not take the pipeline down. Every popped item is
// acknowledged on the queue regardless of outcome so a shutdown waiting on
// Join can observe the drain.
type Worker struct {
	log          zerolog.Logger
	queue        *ledger.Queue
	resolver     Resolver
	matcher      *ledger.Matcher
	entitlements *EntitlementStore
	sessions     *SessionRegistry
	dispatcher   Dispatcher
}

// NewWorker wires a confirmation worker. All collaborators are required.
func NewWorker(
	log zerolog.Logger,
	queue *ledger.Queue,
	resolver Resolver,
	matcher *ledger.Matcher,
	entitlements *EntitlementStore,
	sessions *SessionRegistry,
	dispatcher Dispatcher,
) *Worker {
	return &Worker{
		log:          log.With().Str("component", "worker").Logger(),
		queue:        queue,
		resolver:     resolver,
		matcher:      matcher,
		entitlements: entitlements,
		sessions:     sessions,
		dispatcher:   dispatcher,
	}
}

// Run drains the queue until the stop sentinel is popped. ctx bounds the
// in-flight resolve call of the item being drained; the loop itself only
// stops on the sentinel.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().Msg("confirmation worker running")

	for {
		ev, ok := w.queue.Pop()
		if !ok {
			w.log.Info().Msg("stop sentinel received, confirmation worker exiting")
			return
		}
		w.process(ctx, ev)
		w.queue.Done()
	}
}

func (w *Worker) process(ctx context.Context, ev *ledger.Event) {
	ref, err := ev.Ref()
	if err != nil {
		w.log.Warn().Err(err).Msg("dropping event with undecodable payload")
		return
	}

	msg, err := w.resolver.ResolveMessage(ctx, ref.MessageID)
	if err != nil {
		w.log.Warn().Err(err).Str("message_id", ref.MessageID).Msg("dropping event, message resolve failed")
		return
	}

	receipt, ok := w.matcher.Match(msg)
	if !ok {
		w.log.Debug().Str("message_id", ref.MessageID).Msg("message did not match a payment")
		return
	}

	w.entitlements.MarkPaid(receipt.Slug, receipt.TokenHash)

	connID, ok := w.sessions.ResolveAndRemove(receipt.TokenHash)
	if ok {
		w.dispatcher.Notify(connID)
	}

	w.log.Info().
		Str("slug", receipt.Slug).
		Str("token_hash", receipt.TokenHash).
		Bool("notified", ok).
		Msg("payment confirmed")
}
