// Package message decodes inbound webhook XML into typed envelopes.
package message

import "time"

// Kind is the top-level content type of an inbound message.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindImage
	KindVoice
	KindVideo
	KindShortVideo
	KindLocation
	KindLink
	KindMusic
	KindEvent
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindText:       "text",
	KindImage:      "image",
	KindVoice:      "voice",
	KindVideo:      "video",
	KindShortVideo: "shortvideo",
	KindLocation:   "location",
	KindLink:       "link",
	KindMusic:      "music",
	KindEvent:      "event",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// EventType is the second-level discriminator of an event message.
type EventType int

const (
	EventNone EventType = iota
	EventSubscribe
	EventUnsubscribe
	EventClick
	EventView
	EventScan
	EventScanCodePush
	EventScanCodeWait
	EventLocationReport
	EventUnknown
)

var eventNames = map[EventType]string{
	EventNone:           "",
	EventSubscribe:      "subscribe",
	EventUnsubscribe:    "unsubscribe",
	EventClick:          "click",
	EventView:           "view",
	EventScan:           "scan",
	EventScanCodePush:   "scancode_push",
	EventScanCodeWait:   "scancode_waitmsg",
	EventLocationReport: "location",
	EventUnknown:        "unknown",
}

func (e EventType) String() string {
	return eventNames[e]
}

// Fields is the kind-specific payload. Only the fields relevant to the
// message kind are populated; absent elements stay at their zero value.
type Fields struct {
	Content string

	PicURL       string
	MediaID      string
	Format       string
	ThumbMediaID string

	Label     string
	LocationX float64
	LocationY float64
	Scale     int

	URL         string
	Title       string
	Description string

	MusicURL  string
	MusicName string
	MusicDesc string

	EventKey   string
	Ticket     string
	Latitude   float64
	Longitude  float64
	Precision  float64
	ScanType   string
	ScanResult string
}

// IncomingMessage is one parsed inbound message. It is never mutated
// after Parse returns.
type IncomingMessage struct {
	FromUser   string
	ToUser     string
	CreateTime time.Time
	MsgID      string

	Kind  Kind
	Event EventType

	// RawType and RawEvent are MsgType and Event exactly as received.
	RawType  string
	RawEvent string

	Fields Fields
}

// Route names the dispatch slot the message maps to, e.g. "text" or
// "event.subscribe".
func (m *IncomingMessage) Route() string {
	if m.Kind != KindEvent {
		return m.Kind.String()
	}
	return "event." + m.Event.String()
}
