package message

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is returned for bodies that are not a well-formed <xml>
// envelope.
var ErrMalformed = errors.New("malformed message envelope")

// envelope mirrors the wire format. Element names are case-sensitive;
// music messages use lowercase url/name/desc.
type envelope struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   string   `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	MsgID        string   `xml:"MsgId"`

	Content      string `xml:"Content"`
	PicURL       string `xml:"PicUrl"`
	MediaID      string `xml:"MediaId"`
	Format       string `xml:"Format"`
	ThumbMediaID string `xml:"ThumbMediaId"`
	Label        string `xml:"Label"`
	LocationX    string `xml:"Location_X"`
	LocationY    string `xml:"Location_Y"`
	Scale        string `xml:"Scale"`
	URL          string `xml:"Url"`
	Title        string `xml:"Title"`
	Description  string `xml:"Description"`
	MusicURL     string `xml:"url"`
	MusicName    string `xml:"name"`
	MusicDesc    string `xml:"desc"`

	Event        string `xml:"Event"`
	EventKey     string `xml:"EventKey"`
	Ticket       string `xml:"Ticket"`
	Latitude     string `xml:"Latitude"`
	Longitude    string `xml:"Longitude"`
	Precision    string `xml:"Precision"`
	ScanCodeInfo struct {
		ScanType   string `xml:"ScanType"`
		ScanResult string `xml:"ScanResult"`
	} `xml:"ScanCodeInfo"`
}

var kindsByType = map[string]Kind{
	"text":       KindText,
	"image":      KindImage,
	"voice":      KindVoice,
	"video":      KindVideo,
	"shortvideo": KindShortVideo,
	"location":   KindLocation,
	"link":       KindLink,
	"music":      KindMusic,
	"event":      KindEvent,
}

// Event names are matched exactly. Some arrive lowercase, some uppercase,
// and the scan event has three spellings across platforms.
var eventsByName = map[string]EventType{
	"subscribe":        EventSubscribe,
	"unsubscribe":      EventUnsubscribe,
	"CLICK":            EventClick,
	"VIEW":             EventView,
	"scan":             EventScan,
	"SCAN":             EventScan,
	"YIXINscan":        EventScan,
	"scancode_push":    EventScanCodePush,
	"scancode_waitmsg": EventScanCodeWait,
	"LOCATION":         EventLocationReport,
}

// Parse decodes a raw request body into an IncomingMessage. Missing
// optional elements are left empty; only malformed XML is an error.
func Parse(data []byte) (*IncomingMessage, error) {
	var env envelope
	if err := decodeEnvelope(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	msg := &IncomingMessage{
		FromUser: env.FromUserName,
		ToUser:   env.ToUserName,
		MsgID:    strings.TrimSpace(env.MsgID),
		RawType:  strings.TrimSpace(env.MsgType),
		RawEvent: strings.TrimSpace(env.Event),
	}
	if ts := parseInt(env.CreateTime); ts > 0 {
		msg.CreateTime = time.Unix(int64(ts), 0)
	}

	kind, ok := kindsByType[msg.RawType]
	if !ok {
		kind = KindUnknown
	}
	msg.Kind = kind

	if kind == KindEvent {
		ev, ok := eventsByName[msg.RawEvent]
		if !ok {
			ev = EventUnknown
		}
		msg.Event = ev
	}

	msg.Fields = Fields{
		Content:      env.Content,
		PicURL:       env.PicURL,
		MediaID:      env.MediaID,
		Format:       env.Format,
		ThumbMediaID: env.ThumbMediaID,
		Label:        env.Label,
		LocationX:    parseFloat(env.LocationX),
		LocationY:    parseFloat(env.LocationY),
		Scale:        parseInt(env.Scale),
		URL:          env.URL,
		Title:        env.Title,
		Description:  env.Description,
		MusicURL:     env.MusicURL,
		MusicName:    env.MusicName,
		MusicDesc:    env.MusicDesc,
		EventKey:     env.EventKey,
		Ticket:       env.Ticket,
		Latitude:     parseFloat(env.Latitude),
		Longitude:    parseFloat(env.Longitude),
		Precision:    parseFloat(env.Precision),
		ScanType:     env.ScanCodeInfo.ScanType,
		ScanResult:   env.ScanCodeInfo.ScanResult,
	}

	return msg, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// decodeEnvelope decodes the root element and requires the rest of the
// body to be whitespace, comments or processing instructions.
func decodeEnvelope(data []byte, env *envelope) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(env); err != nil {
		return err
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("unexpected text after root element")
			}
		default:
			return fmt.Errorf("unexpected %T after root element", tok)
		}
	}
}
