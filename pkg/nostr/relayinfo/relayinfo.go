// Package relayinfo implements the NIP-11 relay information document served
// to clients that ask for application/nostr+json.
package relayinfo

// Limits describes the operational limits of the relay, so clients can trim
// their requests before hitting the enforcing policies.
type Limits struct {
	// MaxMessageLength is the maximum size in bytes of an incoming websocket
	// message, which also bounds the size of any event.
	MaxMessageLength int `json:"max_message_length,omitempty"`
	// MaxSubscriptions is the number of subscriptions one connection can
	// hold open at once.
	MaxSubscriptions int `json:"max_subscriptions,omitempty"`
	// MaxFilters is the number of filters accepted in a single REQ.
	MaxFilters int `json:"max_filters,omitempty"`
	// MaxLimit caps the limit of any single query; higher requested limits
	// are quietly clamped.
	MaxLimit int `json:"max_limit,omitempty"`
	// MaxSubidLength is the longest accepted subscription id.
	MaxSubidLength int `json:"max_subid_length,omitempty"`
	// CreatedAtUpperOffset is how many seconds into the future an event
	// timestamp may lie before the event is rejected.
	CreatedAtUpperOffset int64 `json:"created_at_upper_offset,omitempty"`
}

// T is the relay information document.
type T struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PubKey        string `json:"pubkey,omitempty"`
	Contact       string `json:"contact,omitempty"`
	SupportedNIPs []int  `json:"supported_nips"`
	Software      string `json:"software"`
	Version       string `json:"version"`
	Icon          string `json:"icon,omitempty"`
	Limitation    Limits `json:"limitation"`
}

// NewInfo returns an information document with the capabilities this
// codebase actually implements filled in.
func NewInfo(name, description, pubkey, contact, icon string,
	limits Limits) *T {

	return &T{
		Name:        name,
		Description: description,
		PubKey:      pubkey,
		Contact:     contact,
		Icon:        icon,
		// basic flow, deletion, tag queries, command results, counting
		SupportedNIPs: []int{1, 9, 11, 12, 15, 16, 20, 33, 45},
		Limitation:    limits,
	}
}
