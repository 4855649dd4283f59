package core

import (
	"time"
)

// envelopeLayout is the wire form of an Envelope key.
const envelopeLayout = "01-2006"

// EnvelopeOf buckets a date into its budgeting period.
func EnvelopeOf(t time.Time) Envelope {
	return Envelope(t.Format(envelopeLayout))
}

// ParseEnvelope validates an MM-YYYY envelope key.
func ParseEnvelope(s string) (Envelope, error) {
	t, err := time.Parse(envelopeLayout, s)
	if err != nil {
		return "", ErrInvalidEnvelope
	}
	return EnvelopeOf(t), nil
}

// Time returns the first instant of the envelope's period. Invalid keys
// return the zero time.
func (e Envelope) Time() time.Time {
	t, err := time.Parse(envelopeLayout, string(e))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Before orders envelopes chronologically.
func (e Envelope) Before(other Envelope) bool {
	return e.Time().Before(other.Time())
}
