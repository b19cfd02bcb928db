package relay

import (
	"errors"
	"slices"
)

// DeliveryReport is the outcome of routing one envelope.
// Succeeded counts sends handed to the transport, not receipts by the peer.
type DeliveryReport struct {
	EnvelopeID string
	Scope      Scope
	Targeted   int
	Succeeded  int
	Failed     int
	Failures   map[string]error
}

func (r *DeliveryReport) recordSuccess() {
	r.Succeeded++
}

func (r *DeliveryReport) recordFailure(connID string, err error) {
	if r.Failures == nil {
		r.Failures = make(map[string]error)
	}
	r.Failed++
	r.Failures[connID] = err
}

// FailedIDs returns the ids of recipients that were not delivered to, sorted.
func (r DeliveryReport) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failures))
	for id := range r.Failures {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Err joins every per-recipient failure as a *DeliveryError, or returns nil
// when all sends succeeded.
func (r DeliveryReport) Err() error {
	if r.Failed == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, id := range r.FailedIDs() {
		errs = append(errs, &DeliveryError{ConnID: id, Err: r.Failures[id]})
	}
	return errors.Join(errs...)
}
