package kind

import (
	"strconv"
)

// T is the event type in the nostr protocol, referred to as kind.T so that the
// constants below read as kind.TextNote rather than nostr.KindTextNote.
type T uint16

func (ki T) ToInt() int       { return int(ki) }
func (ki T) ToUint16() uint16 { return uint16(ki) }

const (
	// ProfileMetadata is an event type that stores user profile data, pet
	// names, bio, lightning address, etc.
	ProfileMetadata T = 0
	// TextNote is a standard short text note of plain text a la twitter
	TextNote T = 1
	// RecommendRelay is a relay recommendation, deprecated in favour of
	// RelayListMetadata.
	RecommendRelay T = 2
	// FollowList an event containing a list of pubkeys of users that should be
	// shown as follows in a timeline.
	FollowList T = 3
	// EncryptedDirectMessage is a NIP-04 direct message.
	EncryptedDirectMessage T = 4
	// Deletion requests the deletion of the events in its e tags.
	Deletion T = 5
	Repost   T = 6
	Reaction T = 7
	// BadgeAward is an event type
	BadgeAward T = 8
	// GenericRepost is a repost of anything other than a text note.
	GenericRepost      T = 16
	ChannelCreation    T = 40
	ChannelMetadata    T = 41
	ChannelMessage     T = 42
	ChannelHideMessage T = 43
	ChannelMuteUser    T = 44
	FileMetadata       T = 1063
	LiveChatMessage    T = 1311
	// Reporting contains a report about an event (usually text note or other
	// human readable)
	Reporting T = 1984
	Label     T = 1985
	ZapRequest T = 9734
	Zap        T = 9735
	// ReplaceableStart is the first of the range of replaceable kinds.
	ReplaceableStart  T = 10000
	MuteList          T = 10000
	PinList           T = 10001
	RelayListMetadata T = 10002
	// ReplaceableEnd is one past the last replaceable kind.
	ReplaceableEnd T = 20000
	// EphemeralStart is the first of the range of kinds relays do not store.
	EphemeralStart T = 20000
	// ClientAuthentication is the NIP-42 AUTH response event.
	ClientAuthentication T = 22242
	// Benchmark is the ephemeral kind used by the relay benchmark.
	Benchmark         T = 22222
	NWCWalletRequest  T = 23194
	NWCWalletResponse T = 23195
	NostrConnect      T = 24133
	HTTPAuth          T = 27235
	// EphemeralEnd is one past the last ephemeral kind.
	EphemeralEnd T = 30000
	// ParameterizedReplaceableStart is the first of the range of kinds that
	// are replaced by author, kind and d tag.
	ParameterizedReplaceableStart T = 30000
	FollowSets                    T = 30000
	GenericLists                  T = 30001
	RelaySets                     T = 30002
	ProfileBadges                 T = 30008
	BadgeDefinition               T = 30009
	LongFormContent               T = 30023
	ApplicationSpecificData       T = 30078
	LiveEvent                     T = 30311
	// ParameterizedReplaceableEnd is one past the last parameterized
	// replaceable kind.
	ParameterizedReplaceableEnd T = 40000
)

var Map = map[T]string{
	ProfileMetadata:         "ProfileMetadata",
	TextNote:                "TextNote",
	RecommendRelay:          "RecommendRelay",
	FollowList:              "FollowList",
	EncryptedDirectMessage:  "EncryptedDirectMessage",
	Deletion:                "Deletion",
	Repost:                  "Repost",
	Reaction:                "Reaction",
	BadgeAward:              "BadgeAward",
	GenericRepost:           "GenericRepost",
	ChannelCreation:         "ChannelCreation",
	ChannelMetadata:         "ChannelMetadata",
	ChannelMessage:          "ChannelMessage",
	ChannelHideMessage:      "ChannelHideMessage",
	ChannelMuteUser:         "ChannelMuteUser",
	FileMetadata:            "FileMetadata",
	LiveChatMessage:         "LiveChatMessage",
	Reporting:               "Reporting",
	Label:                   "Label",
	ZapRequest:              "ZapRequest",
	Zap:                     "Zap",
	MuteList:                "MuteList",
	PinList:                 "PinList",
	RelayListMetadata:       "RelayListMetadata",
	ClientAuthentication:    "ClientAuthentication",
	Benchmark:               "Benchmark",
	NWCWalletRequest:        "NWCWalletRequest",
	NWCWalletResponse:       "NWCWalletResponse",
	NostrConnect:            "NostrConnect",
	HTTPAuth:                "HTTPAuth",
	FollowSets:              "FollowSets",
	GenericLists:            "GenericLists",
	RelaySets:               "RelaySets",
	ProfileBadges:           "ProfileBadges",
	BadgeDefinition:         "BadgeDefinition",
	LongFormContent:         "LongFormContent",
	ApplicationSpecificData: "ApplicationSpecificData",
	LiveEvent:               "LiveEvent",
}

// Name returns the symbolic name of a known kind, or the number.
func (ki T) Name() string {
	if n, ok := Map[ki]; ok {
		return n
	}
	return strconv.Itoa(int(ki))
}

func (ki T) IsReplaceable() bool {
	return ki == ProfileMetadata || ki == FollowList ||
		(ki >= ReplaceableStart && ki < ReplaceableEnd)
}

func (ki T) IsEphemeral() bool {
	return ki >= EphemeralStart && ki < EphemeralEnd
}

func (ki T) IsParameterizedReplaceable() bool {
	return ki >= ParameterizedReplaceableStart &&
		ki < ParameterizedReplaceableEnd
}
