package httpapi

import (
	"encoding/json"

	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

var errInvalidBody = hearthrunerr.New(hearthrunerr.InvalidRequest, "invalid request body")

func marshalCompact(v any) ([]byte, error) {
	return json.Marshal(v)
}
