// Package integrity validates report authenticity: structural sanity, hash
// binding, signature, replay protection and clock drift.
package integrity

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"time"

	"github.com/level114/warden/internal/domain/model"
)

// Kind identifies a verification failure class.
type Kind string

const (
	KindMalformed  Kind = "malformed"
	KindIntegrity  Kind = "integrity"
	KindSignature  Kind = "signature"
	KindReplay     Kind = "replay"
	KindClockDrift Kind = "clock_drift"
)

// Result is the outcome of verifying one report.
//
// OK means every check passed. Accepted means the report may still be scored:
// integrity, signature and clock-drift failures score with a penalty, while
// malformed and replayed reports are dropped entirely.
type Result struct {
	OK       bool
	Accepted bool
	Kind     Kind
	Detail   string
}

func pass() Result {
	return Result{OK: true, Accepted: true}
}

func reject(kind Kind, detail string) Result {
	return Result{Kind: kind, Detail: detail}
}

func flag(kind Kind, detail string) Result {
	return Result{Accepted: true, Kind: kind, Detail: detail}
}

// Default sanity and drift bounds.
const (
	defaultMinTPSMillis   = 10
	defaultMaxTPSMillis   = 25000
	defaultMaxPlayers     = 10000
	defaultMaxDrift       = 15 * time.Minute
	defaultMaxCounterJump = 1000
)

// Verifier checks reports against a server's public key and replay state.
// It is a pure function of its inputs; persisting the accepted counter is
// the caller's job.
type Verifier struct {
	minTPSMillis   int64
	maxTPSMillis   int64
	maxPlayers     int
	maxDrift       time.Duration
	maxCounterJump int64
}

// Option applies a configuration option to the Verifier.
type Option func(*Verifier)

// WithMaxDrift sets the tolerated distance between wall clock and report
// creation time.
func WithMaxDrift(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.maxDrift = d
		}
	}
}

// WithTPSBounds sets the accepted tick-duration range in milliseconds.
func WithTPSBounds(minMillis, maxMillis int64) Option {
	return func(v *Verifier) {
		if minMillis > 0 && maxMillis > minMillis {
			v.minTPSMillis = minMillis
			v.maxTPSMillis = maxMillis
		}
	}
}

// WithMaxPlayers sets the sanity clamp for reported capacity.
func WithMaxPlayers(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.maxPlayers = n
		}
	}
}

// WithMaxCounterJump sets the largest counter advance treated as plausible.
func WithMaxCounterJump(n int64) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.maxCounterJump = n
		}
	}
}

// NewVerifier creates a verifier with configuration options.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		minTPSMillis:   defaultMinTPSMillis,
		maxTPSMillis:   defaultMaxTPSMillis,
		maxPlayers:     defaultMaxPlayers,
		maxDrift:       defaultMaxDrift,
		maxCounterJump: defaultMaxCounterJump,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the check ladder: sanity, hash binding, signature, replay,
// clock drift. The first hard failure short-circuits. lastCounter is the
// highest counter previously accepted for this server; pass a negative
// value when no report has been accepted yet.
func (v *Verifier) Verify(report *model.Report, pubkey ed25519.PublicKey, lastCounter int64, now time.Time) Result {
	if report == nil {
		return reject(KindMalformed, "nil report")
	}

	// 1. Sanity. Out-of-range values are clamped by Clamp before scoring,
	// not rejected here; only structural impossibilities reject.
	if report.ServerID == "" {
		return reject(KindMalformed, "missing server_id")
	}
	if report.Counter < 0 || report.Payload.TPSMillis <= 0 {
		// No real tick takes zero or negative time; this is corruption, not
		// a value to clamp.
		return reject(KindMalformed, "impossible tick duration or counter")
	}

	// 2. Hash binding.
	computed, err := report.ComputePayloadHash()
	if err != nil {
		return reject(KindMalformed, "payload not serializable")
	}
	if strings.TrimRight(report.PayloadHash, "=") != computed {
		return flag(KindIntegrity, "payload hash mismatch")
	}

	// 3. Signature.
	if len(pubkey) != ed25519.PublicKeySize {
		return flag(KindSignature, "no public key for server")
	}
	sig, err := decodeSignature(report.Signature)
	if err != nil {
		return flag(KindSignature, "signature not decodable")
	}
	if !ed25519.Verify(pubkey, report.SigningMessage(), sig) {
		return flag(KindSignature, "signature verification failed")
	}

	// 4. Replay.
	if lastCounter >= 0 {
		if report.Counter <= lastCounter {
			return reject(KindReplay, "counter not strictly increasing")
		}
		if report.Counter-lastCounter > v.maxCounterJump {
			return flag(KindIntegrity, "implausible counter jump")
		}
	}

	// 5. Clock drift.
	drift := now.Sub(report.CreatedTime())
	if drift < 0 {
		drift = -drift
	}
	if drift > v.maxDrift {
		return flag(KindClockDrift, "created_at outside drift tolerance")
	}

	return pass()
}

// Clamp returns a copy of the report with out-of-range numeric fields pulled
// into their sanity bounds. The input is never mutated.
func (v *Verifier) Clamp(report *model.Report) *model.Report {
	clamped := *report
	if clamped.Payload.TPSMillis < v.minTPSMillis {
		clamped.Payload.TPSMillis = v.minTPSMillis
	}
	if clamped.Payload.TPSMillis > v.maxTPSMillis {
		clamped.Payload.TPSMillis = v.maxTPSMillis
	}
	if clamped.Payload.MaxPlayers > v.maxPlayers {
		clamped.Payload.MaxPlayers = v.maxPlayers
	}
	return &clamped
}

func decodeSignature(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	return base64.RawURLEncoding.DecodeString(s)
}
