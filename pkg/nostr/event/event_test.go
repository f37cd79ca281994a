package event

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/lumenlabs/relayr/pkg/nostr/tag"
	"github.com/lumenlabs/relayr/pkg/nostr/tags"
	"github.com/lumenlabs/relayr/pkg/nostr/timestamp"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func testSecKey() string { return hex.EncodeToString(frand.Bytes(32)) }

func TestSerializeCanonicalForm(t *testing.T) {
	pk := "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	ev := &T{
		PubKey:    pk,
		CreatedAt: 1000,
		Kind:      1,
		Tags:      tags.T{tag.T{"t", "hello"}},
		Content:   "line1\nline2",
	}
	want := fmt.Sprintf(
		`[0,"%s",1000,1,[["t","hello"]],"line1\nline2"]`, pk)
	require.Equal(t, want, string(ev.Serialize()))
}

func TestSignAndValidate(t *testing.T) {
	ev := &T{
		CreatedAt: timestamp.Now(),
		Kind:      1,
		Content:   "hello world",
	}
	require.NoError(t, ev.Sign(testSecKey()))
	require.Len(t, ev.ID.String(), 64)
	require.Len(t, ev.PubKey, 64)
	require.True(t, ev.CheckID())
	valid, err := ev.CheckSignature()
	require.NoError(t, err)
	require.True(t, valid)
	require.NoError(t, ev.Validate())
}

func TestValidateRejectsTamperedContent(t *testing.T) {
	ev := &T{CreatedAt: timestamp.Now(), Kind: 1, Content: "original"}
	require.NoError(t, ev.Sign(testSecKey()))
	ev.Content = "modified"
	err := ev.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid:")
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	ev := &T{CreatedAt: timestamp.Now(), Kind: 1, Content: "payload"}
	require.NoError(t, ev.Sign(testSecKey()))
	// a signature from a different key over the same id
	other := &T{CreatedAt: ev.CreatedAt, Kind: 1, Content: "payload"}
	require.NoError(t, other.Sign(testSecKey()))
	ev.Sig = other.Sig
	err := ev.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "signature")
}

func TestValidateRawMalformed(t *testing.T) {
	_, err := Validate([]byte(`{"id": nope`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid:")
}

func TestValidateFieldLengths(t *testing.T) {
	ev := &T{CreatedAt: timestamp.Now(), Kind: 1}
	require.NoError(t, ev.Sign(testSecKey()))
	for name, mutate := range map[string]func(*T){
		"short id":      func(e *T) { e.ID = e.ID[:32] },
		"non-hex id":    func(e *T) { e.ID = e.ID[:63] + "z" },
		"short pubkey":  func(e *T) { e.PubKey = e.PubKey[:10] },
		"non-hex pk":    func(e *T) { e.PubKey = e.PubKey[:63] + "x" },
		"truncated sig": func(e *T) { e.Sig = e.Sig[:16] },
	} {
		t.Run(name, func(t *testing.T) {
			bad := *ev
			mutate(&bad)
			require.Error(t, bad.Validate())
		})
	}
}
