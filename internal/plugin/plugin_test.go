package plugin

import (
	"context"
	"testing"

	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPlugin struct {
	id         string
	initErr    error
	closeErr   error
	initCalls  int
	closeCalls int
	closed     *[]string
}

func (p *testPlugin) ID() string { return p.id }

func (p *testPlugin) Init(_ context.Context, api API) error {
	p.initCalls++
	if p.initErr == nil {
		api.Hooks.On(hooks.EventGatewayStart, p.id, func(context.Context, hooks.Payload) error { return nil })
	}
	return p.initErr
}

func (p *testPlugin) Close() error {
	p.closeCalls++
	if p.closed != nil {
		*p.closed = append(*p.closed, p.id)
	}
	return p.closeErr
}

func testRegistry() (*Registry, *hooks.Manager) {
	log := logging.New(nil, "silent")
	hm := hooks.NewManager(log)
	return NewRegistry(hm, log), hm
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg, _ := testRegistry()
	require.NoError(t, reg.Register(&testPlugin{id: "events"}))

	err := reg.Register(&testPlugin{id: "events"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, []string{"events"}, reg.List())
}

func TestRegistry_InitAllSubscribesHooks(t *testing.T) {
	reg, hm := testRegistry()
	a := &testPlugin{id: "a"}
	b := &testPlugin{id: "b"}
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	require.NoError(t, reg.InitAll(context.Background()))
	assert.Equal(t, 1, a.initCalls)
	assert.Equal(t, 1, b.initCalls)
	assert.Equal(t, 2, hm.Count(hooks.EventGatewayStart))
}

func TestRegistry_InitAllRollsBack(t *testing.T) {
	reg, _ := testRegistry()
	var closed []string
	a := &testPlugin{id: "a", closed: &closed}
	bad := &testPlugin{id: "bad", initErr: assert.AnError, closed: &closed}
	c := &testPlugin{id: "c", closed: &closed}
	for _, p := range []*testPlugin{a, bad, c} {
		require.NoError(t, reg.Register(p))
	}

	err := reg.InitAll(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, []string{"a"}, closed)
	assert.Zero(t, c.initCalls)

	reg.CloseAll()
	assert.Equal(t, 1, a.closeCalls, "not closed twice")
}

func TestRegistry_CloseAllReverseOrder(t *testing.T) {
	reg, _ := testRegistry()
	var closed []string
	require.NoError(t, reg.Register(&testPlugin{id: "a", closed: &closed}))
	require.NoError(t, reg.Register(&testPlugin{id: "b", closed: &closed, closeErr: assert.AnError}))
	require.NoError(t, reg.Register(&testPlugin{id: "c", closed: &closed}))

	require.NoError(t, reg.InitAll(context.Background()))
	reg.CloseAll()
	assert.Equal(t, []string{"c", "b", "a"}, closed)
}

func TestRegistry_CloseAllBeforeInit(t *testing.T) {
	reg, _ := testRegistry()
	p := &testPlugin{id: "a"}
	require.NoError(t, reg.Register(p))
	reg.CloseAll()
	assert.Zero(t, p.closeCalls)
}
