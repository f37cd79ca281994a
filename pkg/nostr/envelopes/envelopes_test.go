package envelopes

import (
	"testing"

	"github.com/lumenlabs/relayr/pkg/nostr/eventid"
	"github.com/lumenlabs/relayr/pkg/nostr/subscriptionid"
	"github.com/stretchr/testify/require"
)

const evJSON = `{"id":"5c83da77af1dec6d7289834998ad7aafbd9e2191396d75ec3cc27f5a77226f36",` +
	`"pubkey":"79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798",` +
	`"created_at":500,"kind":1,"tags":[["t","golang"]],"content":"hi","sig":""}`

func TestParseEventMessage(t *testing.T) {
	env, err := ParseMessage([]byte(`["EVENT",` + evJSON + `]`))
	require.NoError(t, err)
	ev, ok := env.(*Event)
	require.True(t, ok)
	require.Equal(t, "hi", ev.Event.Content)
	require.False(t, ev.SubscriptionID.IsValid())
}

func TestParseEventMessageWithSubID(t *testing.T) {
	env, err := ParseMessage([]byte(`["EVENT","sub1",` + evJSON + `]`))
	require.NoError(t, err)
	ev := env.(*Event)
	require.Equal(t, "sub1", ev.SubscriptionID.String())
	require.EqualValues(t, 1, ev.Event.Kind)
}

func TestParseReqMessage(t *testing.T) {
	raw := `["REQ","sub1",{"kinds":[1]},{"authors":["79be66"],"limit":5}]`
	env, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	req, ok := env.(*Req)
	require.True(t, ok)
	require.Equal(t, "sub1", req.SubscriptionID.String())
	require.Len(t, req.Filters, 2)
	require.Equal(t, 5, *req.Filters[1].Limit)
}

func TestParseReqMessageMissingFilters(t *testing.T) {
	_, err := ParseMessage([]byte(`["REQ","sub1"]`))
	require.Error(t, err)
}

func TestParseCloseMessage(t *testing.T) {
	env, err := ParseMessage([]byte(`["CLOSE","sub1"]`))
	require.NoError(t, err)
	cl, ok := env.(*Close)
	require.True(t, ok)
	require.Equal(t, "sub1", cl.SubscriptionID.String())
}

func TestParseCountMessage(t *testing.T) {
	env, err := ParseMessage([]byte(`["COUNT","c1",{"kinds":[1,7]}]`))
	require.NoError(t, err)
	cr, ok := env.(*CountRequest)
	require.True(t, ok)
	require.Len(t, cr.Filters, 1)
}

func TestParseMessageRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		`{"not":"an array"}`,
		`[]`,
		`["BOGUS","x"]`,
		`["EVENT"]`,
		`not json at all`,
	} {
		_, err := ParseMessage([]byte(raw))
		require.Error(t, err, "input: %s", raw)
	}
}

func TestMarshalForms(t *testing.T) {
	id := eventid.T("5c83da77af1dec6d7289834998ad7aafbd9e2191396d75ec3cc27f5a77226f36")
	sub := subscriptionid.T("sub1")
	cases := []struct {
		want string
		env  E
	}{
		{`["OK","` + id.String() + `",true,""]`,
			&OK{ID: id, OK: true}},
		{`["OK","` + id.String() + `",false,"invalid: bad id"]`,
			&OK{ID: id, Reason: "invalid: bad id"}},
		{`["EOSE","sub1"]`, &EOSE{SubscriptionID: sub}},
		{`["CLOSED","sub1","error: shed"]`,
			&Closed{SubscriptionID: sub, Reason: "error: shed"}},
		{`["NOTICE","slow down"]`, &Notice{Text: "slow down"}},
		{`["COUNT","sub1",{"count":42}]`,
			&CountResponse{SubscriptionID: sub, Count: 42}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, string(Bytes(tc.env)))
	}
}

func TestEventEnvelopeMarshalIncludesSubID(t *testing.T) {
	env := &Event{}
	require.NoError(t, env.UnmarshalJSON([]byte(`["EVENT",`+evJSON+`]`)))
	env.SubscriptionID = subscriptionid.T("abc")
	b := Bytes(env)
	require.Contains(t, string(b), `["EVENT","abc",{`)
	// delivered form parses back
	parsed, err := ParseMessage(b)
	require.NoError(t, err)
	require.Equal(t, "abc", parsed.(*Event).SubscriptionID.String())
}
