// Package envelopes implements the semantic payloads of the protocol
// messages exchanged between client and relay: EVENT, REQ, CLOSE, OK, EOSE,
// CLOSED, NOTICE and COUNT. The wire form is a JSON array whose first element
// is the label.
package envelopes

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventid"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/filters"
	"github.com/lumenlabs/relayr/pkg/nostr/subscriptionid"
	"github.com/tidwall/gjson"
)

// Message labels.
const (
	LEvent  = "EVENT"
	LReq    = "REQ"
	LClose  = "CLOSE"
	LClosed = "CLOSED"
	LOK     = "OK"
	LEOSE   = "EOSE"
	LNotice = "NOTICE"
	LCount  = "COUNT"
)

// E is the interface of all envelope types.
type E interface {
	Label() string
	MarshalJSON() ([]byte, error)
	UnmarshalJSON([]byte) error
}

// Bytes renders any envelope to its wire bytes, swallowing the marshal error
// as the hand written marshalers cannot fail.
func Bytes(env E) (b []byte) {
	b, _ = env.MarshalJSON()
	return
}

// ParseMessage decodes an incoming client message into its envelope type.
func ParseMessage(data []byte) (env E, err error) {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("message is not a JSON array")
	}
	arr := parsed.Array()
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty message array")
	}
	switch arr[0].Str {
	case LEvent:
		env = &Event{}
	case LReq:
		env = &Req{}
	case LClose:
		env = &Close{}
	case LCount:
		env = &CountRequest{}
	default:
		return nil, fmt.Errorf("unknown message label '%s'", arr[0].Str)
	}
	if err = env.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return
}

// Event is the publish request (client to relay, no subscription id) and the
// delivery message (relay to client, with subscription id).
type Event struct {
	SubscriptionID subscriptionid.T
	Event          *event.T
}

func (env *Event) Label() string { return LEvent }

func (env *Event) MarshalJSON() (b []byte, err error) {
	buf := new(bytes.Buffer)
	buf.WriteString(`["EVENT",`)
	if env.SubscriptionID.IsValid() {
		fmt.Fprintf(buf, "%q,", env.SubscriptionID.String())
	}
	var evb []byte
	if evb, err = json.Marshal(env.Event); err != nil {
		return
	}
	buf.Write(evb)
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (env *Event) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	env.Event = &event.T{}
	switch len(arr) {
	case 2:
		return json.Unmarshal([]byte(arr[1].Raw), env.Event)
	case 3:
		if env.SubscriptionID, err = subscriptionid.New(arr[1].Str); err != nil {
			return
		}
		return json.Unmarshal([]byte(arr[2].Raw), env.Event)
	default:
		return fmt.Errorf("failed to decode EVENT envelope")
	}
}

// Req is the subscribe request carrying one or more filters.
type Req struct {
	SubscriptionID subscriptionid.T
	Filters        filters.T
}

func (env *Req) Label() string { return LReq }

func (env *Req) MarshalJSON() (b []byte, err error) {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, `["REQ",%q`, env.SubscriptionID.String())
	for _, f := range env.Filters {
		buf.WriteByte(',')
		var fb []byte
		if fb, err = f.MarshalJSON(); err != nil {
			return
		}
		buf.Write(fb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (env *Req) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 3 {
		return fmt.Errorf("failed to decode REQ envelope: missing filters")
	}
	if env.SubscriptionID, err = subscriptionid.New(arr[1].Str); err != nil {
		return
	}
	env.Filters = make(filters.T, 0, len(arr)-2)
	for i := 2; i < len(arr); i++ {
		f := &filter.T{}
		if err = f.UnmarshalJSON([]byte(arr[i].Raw)); err != nil {
			return fmt.Errorf("%w -- on filter %d", err, i-2)
		}
		env.Filters = append(env.Filters, f)
	}
	return
}

// Close is the request to end a subscription.
type Close struct {
	SubscriptionID subscriptionid.T
}

func (env *Close) Label() string { return LClose }

func (env *Close) MarshalJSON() (b []byte, err error) {
	return []byte(fmt.Sprintf(`["CLOSE",%q]`, env.SubscriptionID.String())), nil
}

func (env *Close) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 2 {
		return fmt.Errorf("failed to decode CLOSE envelope")
	}
	env.SubscriptionID, err = subscriptionid.New(arr[1].Str)
	return
}

// Closed tells the client a subscription was ended or refused by the relay.
type Closed struct {
	SubscriptionID subscriptionid.T
	Reason         string
}

func (env *Closed) Label() string { return LClosed }

func (env *Closed) MarshalJSON() (b []byte, err error) {
	return []byte(fmt.Sprintf(`["CLOSED",%q,%q]`,
		env.SubscriptionID.String(), env.Reason)), nil
}

func (env *Closed) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 3 {
		return fmt.Errorf("failed to decode CLOSED envelope")
	}
	if env.SubscriptionID, err = subscriptionid.New(arr[1].Str); err != nil {
		return
	}
	env.Reason = arr[2].Str
	return
}

// OK is the publish acknowledgment: accepted or not, with a machine-readable
// reason prefix per NIP-01 ("duplicate: ", "invalid: ", "blocked: ",
// "error: ").
type OK struct {
	ID     eventid.T
	OK     bool
	Reason string
}

func (env *OK) Label() string { return LOK }

func (env *OK) MarshalJSON() (b []byte, err error) {
	return []byte(fmt.Sprintf(`["OK",%q,%v,%q]`,
		env.ID.String(), env.OK, env.Reason)), nil
}

func (env *OK) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 4 {
		return fmt.Errorf("failed to decode OK envelope: missing fields")
	}
	env.ID = eventid.T(arr[1].Str)
	env.OK = arr[2].Raw == "true"
	env.Reason = arr[3].Str
	return
}

// EOSE is the end-of-stored-events marker separating historical results from
// live deliveries on a subscription.
type EOSE struct {
	SubscriptionID subscriptionid.T
}

func (env *EOSE) Label() string { return LEOSE }

func (env *EOSE) MarshalJSON() (b []byte, err error) {
	return []byte(fmt.Sprintf(`["EOSE",%q]`, env.SubscriptionID.String())), nil
}

func (env *EOSE) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 2 {
		return fmt.Errorf("failed to decode EOSE envelope")
	}
	env.SubscriptionID, err = subscriptionid.New(arr[1].Str)
	return
}

// Notice is a human readable message to the client.
type Notice struct {
	Text string
}

func (env *Notice) Label() string { return LNotice }

func (env *Notice) MarshalJSON() (b []byte, err error) {
	return []byte(fmt.Sprintf(`["NOTICE",%q]`, env.Text)), nil
}

func (env *Notice) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 2 {
		return fmt.Errorf("failed to decode NOTICE envelope")
	}
	env.Text = arr[1].Str
	return
}

// CountRequest asks for the number of stored events matching a filter set
// (NIP-45).
type CountRequest struct {
	SubscriptionID subscriptionid.T
	Filters        filters.T
}

func (env *CountRequest) Label() string { return LCount }

func (env *CountRequest) MarshalJSON() (b []byte, err error) {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, `["COUNT",%q`, env.SubscriptionID.String())
	for _, f := range env.Filters {
		buf.WriteByte(',')
		var fb []byte
		if fb, err = f.MarshalJSON(); err != nil {
			return
		}
		buf.Write(fb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (env *CountRequest) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 3 {
		return fmt.Errorf("failed to decode COUNT envelope: missing filters")
	}
	if env.SubscriptionID, err = subscriptionid.New(arr[1].Str); err != nil {
		return
	}
	env.Filters = make(filters.T, 0, len(arr)-2)
	for i := 2; i < len(arr); i++ {
		f := &filter.T{}
		if err = f.UnmarshalJSON([]byte(arr[i].Raw)); err != nil {
			return fmt.Errorf("%w -- on filter %d", err, i-2)
		}
		env.Filters = append(env.Filters, f)
	}
	return
}

// CountResponse is the relay's reply to a COUNT request.
type CountResponse struct {
	SubscriptionID subscriptionid.T
	Count          int
}

func (env *CountResponse) Label() string { return LCount }

func (env *CountResponse) MarshalJSON() (b []byte, err error) {
	return []byte(fmt.Sprintf(`["COUNT",%q,{"count":%d}]`,
		env.SubscriptionID.String(), env.Count)), nil
}

func (env *CountResponse) UnmarshalJSON(data []byte) (err error) {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 3 {
		return fmt.Errorf("failed to decode COUNT response")
	}
	if env.SubscriptionID, err = subscriptionid.New(arr[1].Str); err != nil {
		return
	}
	env.Count = int(arr[2].Get("count").Int())
	return
}
