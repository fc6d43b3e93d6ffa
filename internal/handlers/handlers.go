// Package handlers provides the built-in handler sets served by the
// gateway.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/router"
)

// Namespaces registered by Register.
const (
	NamespaceDefault = "default"
	NamespaceEcho    = "echo"
)

// scenePrefix marks the event key of a subscription started by scanning
// a parametrised QR code.
const scenePrefix = "qrscene_"

// Tracker records follower activity. store.SubscriberStore implements it.
type Tracker interface {
	Subscribe(ctx context.Context, account, openID, scene string, at time.Time) error
	Unsubscribe(ctx context.Context, account, openID string, at time.Time) error
	Touch(ctx context.Context, account, openID string, at time.Time) error
}

// Deps are the collaborators shared by the built-in handler sets.
type Deps struct {
	// Account is the receiving account id, used to partition bookkeeping.
	Account     string
	Welcome     string
	Subscribers Tracker
	Hooks       *hooks.Manager
	Now         func() time.Time
	Log         *logging.Logger
}

func (d *Deps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logging.New(nil, "silent")
	}
}

// Register adds the default and echo handler sets to reg.
func Register(reg *router.Registry, d Deps) {
	reg.Register(NamespaceDefault, Default(d))
	reg.Register(NamespaceEcho, Echo(d))
}

// SceneFromEventKey returns the QR scene value carried by a subscribe
// event key, or "" for an ordinary subscription.
func SceneFromEventKey(eventKey string) string {
	scene, ok := strings.CutPrefix(eventKey, scenePrefix)
	if !ok {
		return ""
	}
	return scene
}
