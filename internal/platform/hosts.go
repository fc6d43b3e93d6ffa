package platform

import (
	"fmt"
	"strings"
)

// Supported platforms.
const (
	Weixin = "weixin"
	Yixin  = "yixin"
)

var aliases = map[string]string{
	"weixin": Weixin,
	"wechat": Weixin,
	"wx":     Weixin,
	"yixin":  Yixin,
	"yx":     Yixin,
}

var apiHosts = map[string]string{
	Weixin: "https://api.weixin.qq.com",
	Yixin:  "https://api.yixin.im",
}

// DefaultOpenURL is the web authorization host.
const DefaultOpenURL = "https://open.weixin.qq.com"

// Resolve maps a platform name or alias to its canonical name.
func Resolve(name string) (string, error) {
	if name == "" {
		return Weixin, nil
	}
	p, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown platform %q", name)
	}
	return p, nil
}

// BaseURL returns the API base URL for a platform name or alias.
func BaseURL(name string) (string, error) {
	p, err := Resolve(name)
	if err != nil {
		return "", err
	}
	return apiHosts[p], nil
}
