package stdio

import (
	"context"
	"encoding/json"

	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/handler"
	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/recipe"
)

// HandlerDispatcher is the Dispatcher that routes native-messaging
// actions 1:1 onto internal/handler.Handler, per spec.md §6's stdio
// transport description.
type HandlerDispatcher struct {
	H *handler.Handler
}

func errResponse(err error) Response {
	e := hearthrunerr.AsError(err)
	return Response{Error: &WireError{Kind: string(e.Kind), Message: e.Message, Hint: e.Hint}}
}

func okResponse(result any) Response {
	return Response{Result: result}
}

// Dispatch implements Dispatcher.
func (d *HandlerDispatcher) Dispatch(req Request) Response {
	ctx := context.Background()
	switch req.Action {
	case ActionPing:
		return okResponse(map[string]string{"pong": "ok"})

	case ActionGetHardwareInfo:
		return okResponse(hardware.Probe())

	case ActionPullModel, ActionLoadModel:
		var body struct {
			Source    string           `json:"source"`
			AuthToken string           `json:"auth_token,omitempty"`
			Recipe    *explicitPayload `json:"recipe,omitempty"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed load_model payload"))
		}
		result, err := d.H.LoadModel(ctx, body.Source, body.AuthToken, body.Recipe.toExplicit())
		if err != nil {
			return errResponse(err)
		}
		return okResponse(result)

	case ActionUnloadModel, ActionDeleteModel:
		var body struct {
			ModelID string `json:"model_id,omitempty"`
		}
		_ = json.Unmarshal(req.Data, &body)
		if err := d.H.UnloadModel(ctx, body.ModelID); err != nil {
			return errResponse(err)
		}
		return okResponse(map[string]bool{"ok": true})

	case ActionGenerate:
		var body struct {
			ModelID  string           `json:"model_id,omitempty"`
			Messages []messagePayload `json:"messages"`
			Settings *engine.Settings `json:"settings,omitempty"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed generate payload"))
		}
		messages := make([]engine.ChatMessage, len(body.Messages))
		for i, m := range body.Messages {
			messages[i] = engine.ChatMessage{Role: m.Role, Content: m.Content}
		}
		result, err := d.H.Chat(ctx, body.ModelID, messages, body.Settings)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(result)

	case ActionStopGeneration:
		// stdio's generate is non-streaming (spec.md §5: non-streaming
		// chat has no mid-call cancellation), so there is nothing
		// in-flight for this action to stop; acknowledged as a no-op.
		return okResponse(map[string]bool{"ok": true})

	case ActionGetParams:
		return okResponse(d.H.GetParams())

	case ActionSetParams:
		var settings engine.Settings
		if err := json.Unmarshal(req.Data, &settings); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed set_params payload"))
		}
		return okResponse(d.H.SetParams(settings))

	case ActionGenerateEmbeddings:
		var body struct {
			ModelID string   `json:"model_id,omitempty"`
			Texts   []string `json:"texts"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed generate_embeddings payload"))
		}
		vectors, err := d.H.GenerateEmbeddings(ctx, body.ModelID, body.Texts)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(vectors)

	case ActionSemanticSearch:
		var body struct {
			ModelID   string   `json:"model_id,omitempty"`
			Query     string   `json:"query"`
			Documents []string `json:"documents"`
			K         int      `json:"k"`
			Threshold float64  `json:"threshold,omitempty"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed semantic_search payload"))
		}
		results, err := d.H.SemanticSearch(ctx, body.ModelID, body.Query, body.Documents, body.K, body.Threshold)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(results)

	case ActionRerankDocuments:
		var body struct {
			ModelID   string   `json:"model_id,omitempty"`
			Query     string   `json:"query"`
			Documents []string `json:"documents"`
			TopK      int      `json:"top_k,omitempty"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed rerank_documents payload"))
		}
		results, err := d.H.RerankDocuments(ctx, body.ModelID, body.Query, body.Documents, body.TopK)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(results)

	case ActionClusterTexts:
		var body struct {
			ModelID string                 `json:"model_id,omitempty"`
			Texts   []string               `json:"texts"`
			Options handler.ClusterOptions `json:"options"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed cluster_texts payload"))
		}
		result, err := d.H.Cluster(ctx, body.ModelID, body.Texts, body.Options)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(result)

	case ActionRecommendItems:
		var body struct {
			ModelID string                   `json:"model_id,omitempty"`
			Items   []string                 `json:"items"`
			Mode    string                   `json:"mode,omitempty"`
			Options handler.RecommendOptions `json:"options"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed recommend_items payload"))
		}
		var (
			items []handler.RecommendedItem
			err   error
		)
		switch body.Mode {
		case "profile":
			items, err = d.H.RecommendForProfile(ctx, body.ModelID, body.Items, body.Options)
		case "diverse":
			items, err = d.H.RecommendDiverse(ctx, body.ModelID, body.Items, body.Options)
		default:
			items, err = d.H.RecommendSimilar(ctx, body.ModelID, body.Items, body.Options)
		}
		if err != nil {
			return errResponse(err)
		}
		return okResponse(items)

	case ActionQueryResources:
		return okResponse(d.H.QueryResources())

	case ActionListLoadedModels:
		return okResponse(d.H.ListModels())

	case ActionSelectActiveModel:
		var body struct {
			ModelID string `json:"model_id"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed select_active_model payload"))
		}
		if err := d.H.SelectActive(body.ModelID); err != nil {
			return errResponse(err)
		}
		return okResponse(map[string]bool{"ok": true})

	case ActionEstimateModelSize:
		var body struct {
			Source    string `json:"source"`
			AuthToken string `json:"auth_token,omitempty"`
		}
		if err := json.Unmarshal(req.Data, &body); err != nil {
			return errResponse(hearthrunerr.New(hearthrunerr.InvalidRequest, "malformed estimate_model_size payload"))
		}
		plans, err := d.H.EstimateModelSize(ctx, body.Source, body.AuthToken)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(plans)

	default:
		return errResponse(hearthrunerr.Newf(hearthrunerr.InvalidRequest, "unknown action %q", req.Action))
	}
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type explicitPayload struct {
	Engine      recipe.Engine      `json:"engine"`
	Accelerator recipe.Accelerator `json:"accelerator,omitempty"`
	ContextSize int                `json:"context_size,omitempty"`
	BatchSize   int                `json:"batch_size,omitempty"`
	Threads     int                `json:"threads,omitempty"`
	Extra       map[string]any     `json:"extra,omitempty"`
}

func (p *explicitPayload) toExplicit() *recipe.Explicit {
	if p == nil || p.Engine == "" {
		return nil
	}
	return &recipe.Explicit{
		Engine:      p.Engine,
		Accelerator: p.Accelerator,
		ContextSize: p.ContextSize,
		BatchSize:   p.BatchSize,
		Threads:     p.Threads,
		Extra:       p.Extra,
	}
}
