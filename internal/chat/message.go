// Package chat polls the game's local web API for incoming chat messages so
// they can be read aloud.
package chat

import (
	"regexp"
	"strings"
	"time"
)

// Channel is where a chat message was posted.
type Channel int

const (
	ChannelUnknown Channel = iota
	ChannelAll
	ChannelTeam
	ChannelSquadron
)

func (c Channel) String() string {
	switch c {
	case ChannelAll:
		return "all"
	case ChannelTeam:
		return "team"
	case ChannelSquadron:
		return "squadron"
	default:
		return "unknown"
	}
}

// ParseChannel maps the API's mode field to a Channel.
func ParseChannel(mode string) Channel {
	switch strings.ToLower(mode) {
	case "all":
		return ChannelAll
	case "team":
		return ChannelTeam
	case "squad", "squadron":
		return ChannelSquadron
	default:
		return ChannelUnknown
	}
}

// Message is one received chat line, cleaned of markup.
type Message struct {
	ID       int
	Time     time.Time
	Channel  Channel
	Sender   string
	Content  string
	Enemy    bool
	Metadata string // bracketed tags stripped from the content, e.g. clan tags
}

// colorTagRE matches the game's <color=...>[TAG]</color> markup around clan
// and squad tags embedded in message bodies.
var colorTagRE = regexp.MustCompile(`<color=[^>]*>\s*(\[[^\]]*\])\s*</color>`)

// stripMarkup removes color-tag markup from a raw message body, returning
// the clean text and the stripped tags.
func stripMarkup(raw string) (content, metadata string) {
	var tags []string
	clean := colorTagRE.ReplaceAllStringFunc(raw, func(m string) string {
		sub := colorTagRE.FindStringSubmatch(m)
		tags = append(tags, sub[1])
		return ""
	})
	return strings.TrimSpace(clean), strings.Join(tags, " ")
}
