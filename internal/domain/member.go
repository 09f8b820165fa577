package domain

const MaxMemberNameLen = 36

type MediaKind string

const (
	MediaAudio  MediaKind = "audio"
	MediaVideo  MediaKind = "video"
	MediaScreen MediaKind = "screen"
)

// MediaState is the media state a connection has claimed for itself.
// The server relays claims, it never verifies them against real tracks.
type MediaState struct {
	Audio  bool `json:"audio"`
	Video  bool `json:"video"`
	Screen bool `json:"screen"`
}

// Set flips one flag. Unknown kinds are rejected so a bad payload cannot
// silently corrupt the claimed state.
func (s *MediaState) Set(kind MediaKind, enabled bool) bool {
	switch kind {
	case MediaAudio:
		s.Audio = enabled
	case MediaVideo:
		s.Video = enabled
	case MediaScreen:
		s.Screen = enabled
	default:
		return false
	}
	return true
}

// Member represents one connection's participation meta.
// No transport or lifecycle logic here.
type Member struct {
	Name  string
	Media MediaState
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(name string) *Member {
	if name == "" {
		name = "guest"
	}
	if len(name) > MaxMemberNameLen {
		name = name[:MaxMemberNameLen]
	}
	return &Member{Name: name}
}
