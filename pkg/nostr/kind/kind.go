// Package kind implements the event kind number and the predicates that
// classify kind ranges.
package kind

// T is the event kind classifier.
type T uint16

const (
	ProfileMetadata   T = 0
	TextNote          T = 1
	RecommendServer   T = 2
	FollowList        T = 3
	EncryptedDM       T = 4
	Deletion          T = 5
	Repost            T = 6
	Reaction          T = 7
	ChannelCreation   T = 40
	ChannelMetadata   T = 41
	ChannelMessage    T = 42
	MuteList          T = 10000
	PinList           T = 10001
	RelayListMetadata T = 10002
	CategorizedPeople T = 30000
	Article           T = 30023
)

// IsReplaceable events have only their latest instance per pubkey visible.
func (k T) IsReplaceable() bool {
	return k == ProfileMetadata || k == FollowList ||
		(10000 <= k && k < 20000)
}

// IsEphemeral events are broadcast but never stored.
func (k T) IsEphemeral() bool { return 20000 <= k && k < 30000 }

// IsParameterizedReplaceable events replace per pubkey and per the value of
// their "d" tag.
func (k T) IsParameterizedReplaceable() bool { return 30000 <= k && k < 40000 }
