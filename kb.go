package hdc

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// VectorEnvelope is the self-describing single-vector serialization blob
// from §6: { strategyId, version, geometry, data }. Data is strategy
// specific; each strategy marshals/unmarshals its own payload into/out of
// this field.
type VectorEnvelope struct {
	StrategyID string          `json:"strategyId"`
	Version    int             `json:"version"`
	Geometry   int             `json:"geometry"`
	Data       json.RawMessage `json:"data"`
}

// FactEnvelope is one entry inside a knowledge-base blob.
type FactEnvelope struct {
	Data     json.RawMessage `json:"data"`
	Name     *string         `json:"name"`
	Metadata map[string]any  `json:"metadata"`
}

// KBEnvelope is the self-describing knowledge-base blob from §6:
// { strategyId, version, geometry, count, facts }.
type KBEnvelope struct {
	StrategyID string         `json:"strategyId"`
	Version    int            `json:"version"`
	Geometry   int            `json:"geometry"`
	Count      int            `json:"count"`
	Facts      []FactEnvelope `json:"facts"`
}

// DecodeVectorEnvelope unmarshals payload and checks its strategyId
// against wantStrategyID, returning ErrStrategyMismatch on mismatch.
func DecodeVectorEnvelope(payload []byte, wantStrategyID string) (VectorEnvelope, error) {
	var env VectorEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return VectorEnvelope{}, fmt.Errorf("hdc: decode vector envelope: %w", err)
	}
	if env.StrategyID != wantStrategyID {
		log.Warn("decode vector envelope: strategy mismatch", zap.String("got", env.StrategyID), zap.String("want", wantStrategyID))
		return VectorEnvelope{}, fmt.Errorf("hdc: envelope strategy %q, want %q: %w", env.StrategyID, wantStrategyID, ErrStrategyMismatch)
	}
	return env, nil
}

// DecodeKBEnvelope unmarshals blob and checks its strategyId against
// wantStrategyID, returning ErrStrategyMismatch on mismatch.
func DecodeKBEnvelope(blob []byte, wantStrategyID string) (KBEnvelope, error) {
	var env KBEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return KBEnvelope{}, fmt.Errorf("hdc: decode kb envelope: %w", err)
	}
	if env.StrategyID != wantStrategyID {
		log.Warn("decode kb envelope: strategy mismatch", zap.String("got", env.StrategyID), zap.String("want", wantStrategyID))
		return KBEnvelope{}, fmt.Errorf("hdc: envelope strategy %q, want %q: %w", env.StrategyID, wantStrategyID, ErrStrategyMismatch)
	}
	return env, nil
}
