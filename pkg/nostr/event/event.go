// Package event implements the signed, immutable, content-addressed record
// that relays store and forward.
package event

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/lumenlabs/relayr/pkg/nostr/escape"
	"github.com/lumenlabs/relayr/pkg/nostr/eventid"
	"github.com/lumenlabs/relayr/pkg/nostr/kind"
	"github.com/lumenlabs/relayr/pkg/nostr/tags"
	"github.com/lumenlabs/relayr/pkg/nostr/timestamp"
	"github.com/lumenlabs/relayr/pkg/slog"
	"github.com/minio/sha256-simd"
)

var log, chk = slog.New(os.Stderr)

// T is the primary datatype of nostr, in the form that defines its JSON
// encoding.
type T struct {

	// ID is the SHA256 hash of the canonical encoding of the event.
	ID eventid.T `json:"id"`

	// PubKey is the public key of the event creator in hexadecimal format.
	PubKey string `json:"pubkey"`

	// CreatedAt is the UNIX timestamp of the event according to the event
	// creator (never trust a timestamp!)
	CreatedAt timestamp.T `json:"created_at"`

	// Kind is the nostr protocol code for the type of event. See kind.T.
	Kind kind.T `json:"kind"`

	// Tags are a list of tags, each a list of strings, the first being the
	// tag name and the second the indexed value.
	Tags tags.T `json:"tags"`

	// Content is an arbitrary string, opaque to the relay.
	Content string `json:"content"`

	// Sig is the signature on the ID hash that validates as coming from the
	// PubKey.
	Sig string `json:"sig"`
}

// C is a channel of events, the query result stream type.
type C chan *T

// Hash is the digest used for event ids.
func Hash(in []byte) (out []byte) {
	h := sha256.Sum256(in)
	return h[:]
}

// Serialize outputs the canonical byte form that is hashed to derive the id:
//
//	[0,pubkey,created_at,kind,tags,content]
//
// JSON encoding as defined in RFC 8259, no insignificant whitespace.
func (ev *T) Serialize() (dst []byte) {
	dst = append(dst, "[0,\""...)
	dst = append(dst, ev.PubKey...)
	dst = append(dst, "\","...)
	dst = strconv.AppendInt(dst, ev.CreatedAt.I64(), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(ev.Kind), 10)
	dst = append(dst, ',')
	dst = ev.Tags.MarshalTo(dst)
	dst = append(dst, ',')
	dst = escape.String(dst, ev.Content)
	dst = append(dst, ']')
	return
}

// GetIDBytes returns the raw SHA256 hash of the canonical form.
func (ev *T) GetIDBytes() []byte { return Hash(ev.Serialize()) }

// GetID serializes and returns the event ID as a hex string.
func (ev *T) GetID() eventid.T {
	return eventid.T(hex.EncodeToString(ev.GetIDBytes()))
}

// CheckID recomputes the id from the canonical serialization and compares it
// with the claimed one.
func (ev *T) CheckID() bool { return ev.GetID() == ev.ID }

// CheckSignature verifies the schnorr signature over the id hash against the
// event pubkey. An error means the signature material itself was malformed.
func (ev *T) CheckSignature() (valid bool, err error) {
	var pkBytes []byte
	if pkBytes, err = hex.DecodeString(ev.PubKey); chk.D(err) {
		err = fmt.Errorf("event pubkey '%s' is invalid hex: %w", ev.PubKey, err)
		return
	}
	var pk *btcec.PublicKey
	if pk, err = schnorr.ParsePubKey(pkBytes); chk.D(err) {
		err = fmt.Errorf("event has invalid pubkey '%s': %w", ev.PubKey, err)
		return
	}
	var sigBytes []byte
	if sigBytes, err = hex.DecodeString(ev.Sig); chk.D(err) {
		err = fmt.Errorf("signature '%s' is invalid hex: %w", ev.Sig, err)
		return
	}
	var sig *schnorr.Signature
	if sig, err = schnorr.ParseSignature(sigBytes); chk.D(err) {
		err = fmt.Errorf("failed to parse signature: %w", err)
		return
	}
	valid = sig.Verify(ev.GetIDBytes(), pk)
	return
}

// Sign signs an event with a secret key encoded in hexadecimal, filling in
// ID, PubKey and Sig.
func (ev *T) Sign(skHex string) (err error) {
	var skBytes []byte
	if skBytes, err = hex.DecodeString(skHex); chk.D(err) {
		return fmt.Errorf("sign called with invalid secret key: %w", err)
	}
	if ev.Tags == nil {
		ev.Tags = make(tags.T, 0)
	}
	sk, pk := btcec.PrivKeyFromBytes(skBytes)
	ev.PubKey = hex.EncodeToString(schnorr.SerializePubKey(pk))
	id := ev.GetIDBytes()
	var sig *schnorr.Signature
	if sig, err = schnorr.Sign(sk, id); chk.D(err) {
		return
	}
	ev.ID = eventid.T(hex.EncodeToString(id))
	ev.Sig = hex.EncodeToString(sig.Serialize())
	return
}

func (ev *T) String() string {
	b, _ := json.Marshal(ev)
	return string(b)
}

// Validate parses a raw event and runs the full acceptance check:
// well-formed fields, id equals the recomputed digest byte-for-byte, and a
// valid signature. Deterministic and side effect free; the future timestamp
// policy bound is applied by the relay, not here.
func Validate(raw []byte) (ev *T, err error) {
	ev = &T{}
	if err = json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("invalid: malformed event JSON: %w", err)
	}
	return ev, ev.Validate()
}

// Validate runs the acceptance check on an already parsed event.
func (ev *T) Validate() (err error) {
	if err = ev.ID.Validate(); err != nil {
		return fmt.Errorf("invalid: %w", err)
	}
	if len(ev.PubKey) != 64 {
		return fmt.Errorf("invalid: pubkey invalid length %d", len(ev.PubKey))
	}
	if _, err = hex.DecodeString(ev.PubKey); err != nil {
		return fmt.Errorf("invalid: pubkey is not valid hex: %w", err)
	}
	if !ev.CheckID() {
		return fmt.Errorf("invalid: id is computed incorrectly")
	}
	var ok bool
	if ok, err = ev.CheckSignature(); err != nil {
		return fmt.Errorf("invalid: %w", err)
	}
	if !ok {
		return fmt.Errorf("invalid: signature is invalid")
	}
	return nil
}
