// Package reply composes the single XML document returned for a webhook
// request.
package reply

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrFlushed         = errors.New("reply already flushed")
	ErrNoArticles      = errors.New("news reply has no articles")
	ErrTooManyArticles = fmt.Errorf("news reply has more than %d articles", MaxArticles)
)

// textSeparator joins buffered text fragments.
const textSeparator = "\r\n"

// Composer buffers reply fragments for one request. Plain text fragments
// accumulate until Flush; a rich payload is rendered as soon as it is set
// and then wins over any buffered text. Composer is not safe for
// concurrent use; each request owns its own.
type Composer struct {
	toUser   string
	fromUser string
	now      func() time.Time

	text     []string
	articles []Article
	rich     []byte
	richType string
	flushed  bool
}

// NewComposer creates a composer addressing toUser on behalf of fromUser.
// For a reply these are the inbound FromUser and ToUser respectively.
func NewComposer(toUser, fromUser string, now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{toUser: toUser, fromUser: fromUser, now: now}
}

// AppendText queues a plain-text fragment.
func (c *Composer) AppendText(s string) {
	c.text = append(c.text, s)
}

// SetRich renders p immediately. A later SetRich replaces it.
func (c *Composer) SetRich(p Payload) error {
	doc := c.header(p.msgType())
	if err := p.fill(&doc); err != nil {
		return err
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("rendering %s reply: %w", p.msgType(), err)
	}
	c.rich = out
	c.richType = p.msgType()
	return nil
}

// AddArticle appends an article to the pending news list. It is sent by
// SendNews.
func (c *Composer) AddArticle(a Article) {
	c.articles = append(c.articles, a)
}

// ClearNews discards pending articles.
func (c *Composer) ClearNews() {
	c.articles = nil
}

// SendNews renders the pending articles as a news reply.
func (c *Composer) SendNews() error {
	return c.SetRich(News{Articles: c.articles})
}

// Pending reports whether Flush would emit a document.
func (c *Composer) Pending() bool {
	return !c.flushed && (c.rich != nil || len(c.text) > 0)
}

// Kind returns the message type Flush would emit, or "" if none.
func (c *Composer) Kind() string {
	switch {
	case c.rich != nil:
		return c.richType
	case len(c.text) > 0:
		return "text"
	}
	return ""
}

// Flush returns the reply document, or nil when nothing was queued. It may
// be called once per request.
func (c *Composer) Flush() ([]byte, error) {
	if c.flushed {
		return nil, ErrFlushed
	}
	c.flushed = true

	if c.rich != nil {
		return c.rich, nil
	}
	if len(c.text) == 0 {
		return nil, nil
	}

	doc := c.header("text")
	content := cd(strings.Join(c.text, textSeparator))
	doc.Content = &content
	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("rendering text reply: %w", err)
	}
	return out, nil
}

func (c *Composer) header(msgType string) document {
	return document{
		ToUserName:   cd(c.toUser),
		FromUserName: cd(c.fromUser),
		CreateTime:   c.now().Unix(),
		MsgType:      cd(msgType),
	}
}
