package stdio

import (
	"encoding/json"
	"testing"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/handler"
	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *HandlerDispatcher {
	h := handler.New(artifact.NewResolver(), hardware.Inventory{}, engine.NewRegistry(map[recipe.Engine]engine.Adapter{}), 4)
	return &HandlerDispatcher{H: h}
}

func TestDispatchPing(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(Request{Action: ActionPing})
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]string{"pong": "ok"}, resp.Result)
}

func TestDispatchGetHardwareInfo(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(Request{Action: ActionGetHardwareInfo})
	require.Nil(t, resp.Error)
	_, ok := resp.Result.(hardware.Inventory)
	assert.True(t, ok)
}

func TestDispatchGetSetParams(t *testing.T) {
	d := newTestDispatcher()

	getResp := d.Dispatch(Request{Action: ActionGetParams})
	require.Nil(t, getResp.Error)

	settings := engine.Settings{Temperature: 0.3, TopP: 0.8, TopK: 10, MaxNewTokens: 64, RepetitionPenalty: 1.05, DoSample: true}
	data, err := json.Marshal(settings)
	require.NoError(t, err)

	setResp := d.Dispatch(Request{Action: ActionSetParams, Data: data})
	require.Nil(t, setResp.Error)

	applied := d.H.GetParams()
	assert.Equal(t, 0.3, applied.Temperature)
}

func TestDispatchUnknownAction(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(Request{Action: Action("nonexistent")})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "InvalidRequest", resp.Error.Kind)
}

func TestDispatchMalformedLoadModelPayload(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(Request{Action: ActionLoadModel, Data: json.RawMessage(`not json`)})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "InvalidRequest", resp.Error.Kind)
}

func TestDispatchStopGenerationIsNoop(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(Request{Action: ActionStopGeneration})
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]bool{"ok": true}, resp.Result)
}

func TestDispatchListLoadedModelsEmpty(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(Request{Action: ActionListLoadedModels})
	require.Nil(t, resp.Error)
	assert.Empty(t, resp.Result)
}

func TestDispatchQueryResources(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(Request{Action: ActionQueryResources})
	require.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}
