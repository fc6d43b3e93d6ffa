package reply

import "encoding/xml"

// cdata renders its value inside a CDATA section.
type cdata struct {
	Value string `xml:",cdata"`
}

func cd(s string) cdata { return cdata{Value: s} }

type mediaRef struct {
	MediaID cdata `xml:"MediaId"`
}

type videoBody struct {
	MediaID     cdata `xml:"MediaId"`
	Title       cdata `xml:"Title"`
	Description cdata `xml:"Description"`
}

type musicBody struct {
	Title        cdata `xml:"Title"`
	Description  cdata `xml:"Description"`
	MusicURL     cdata `xml:"MusicUrl"`
	HQMusicURL   cdata `xml:"HQMusicUrl"`
	ThumbMediaID cdata `xml:"ThumbMediaId"`
}

type articleItem struct {
	Title       cdata `xml:"Title"`
	Description cdata `xml:"Description"`
	PicURL      cdata `xml:"PicUrl"`
	URL         cdata `xml:"Url"`
}

type articleList struct {
	Items []articleItem `xml:"item"`
}

// document is the outbound reply. Exactly one of the payload fields is
// set, matching MsgType.
type document struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`

	Content      *cdata       `xml:"Content,omitempty"`
	Image        *mediaRef    `xml:"Image,omitempty"`
	Voice        *mediaRef    `xml:"Voice,omitempty"`
	Video        *videoBody   `xml:"Video,omitempty"`
	Music        *musicBody   `xml:"Music,omitempty"`
	ArticleCount *int         `xml:"ArticleCount,omitempty"`
	Articles     *articleList `xml:"Articles,omitempty"`
}

// Payload is a rich reply: anything other than plain text.
type Payload interface {
	msgType() string
	fill(doc *document) error
}

// Image replies with a previously uploaded image.
type Image struct {
	MediaID string
}

func (Image) msgType() string { return "image" }

func (p Image) fill(doc *document) error {
	doc.Image = &mediaRef{MediaID: cd(p.MediaID)}
	return nil
}

// Voice replies with a previously uploaded voice clip.
type Voice struct {
	MediaID string
}

func (Voice) msgType() string { return "voice" }

func (p Voice) fill(doc *document) error {
	doc.Voice = &mediaRef{MediaID: cd(p.MediaID)}
	return nil
}

// Video replies with a previously uploaded video.
type Video struct {
	MediaID     string
	Title       string
	Description string
}

func (Video) msgType() string { return "video" }

func (p Video) fill(doc *document) error {
	doc.Video = &videoBody{
		MediaID:     cd(p.MediaID),
		Title:       cd(p.Title),
		Description: cd(p.Description),
	}
	return nil
}

// Music replies with a playable track. HQMusicURL falls back to MusicURL.
type Music struct {
	Title        string
	Description  string
	MusicURL     string
	HQMusicURL   string
	ThumbMediaID string
}

func (Music) msgType() string { return "music" }

func (p Music) fill(doc *document) error {
	hq := p.HQMusicURL
	if hq == "" {
		hq = p.MusicURL
	}
	doc.Music = &musicBody{
		Title:        cd(p.Title),
		Description:  cd(p.Description),
		MusicURL:     cd(p.MusicURL),
		HQMusicURL:   cd(hq),
		ThumbMediaID: cd(p.ThumbMediaID),
	}
	return nil
}

// Article is one graphic-text teaser in a news reply.
type Article struct {
	Title       string
	Description string
	PicURL      string
	URL         string
}

// MaxArticles is the platform limit on articles per news reply.
const MaxArticles = 8

// News replies with an ordered list of articles.
type News struct {
	Articles []Article
}

func (News) msgType() string { return "news" }

func (p News) fill(doc *document) error {
	switch n := len(p.Articles); {
	case n == 0:
		return ErrNoArticles
	case n > MaxArticles:
		return ErrTooManyArticles
	}
	items := make([]articleItem, 0, len(p.Articles))
	for _, a := range p.Articles {
		items = append(items, articleItem{
			Title:       cd(a.Title),
			Description: cd(a.Description),
			PicURL:      cd(a.PicURL),
			URL:         cd(a.URL),
		})
	}
	count := len(items)
	doc.ArticleCount = &count
	doc.Articles = &articleList{Items: items}
	return nil
}
