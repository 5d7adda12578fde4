package weaviate

import (
	"math"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

func graphqlResult(className string, additional map[string]interface{}) map[string]models.JSONObject {
	return map[string]models.JSONObject{
		"Get": map[string]interface{}{
			className: []interface{}{
				map[string]interface{}{
					"content":     "some chunk",
					"source":      "doc1",
					"chunkOrder":  float64(3),
					"_additional": additional,
				},
			},
		},
	}
}

func TestParseChunksScoreConvention(t *testing.T) {
	tests := []struct {
		name       string
		additional map[string]interface{}
		wantScore  float64
	}{
		{
			name:       "near vector distance flipped so higher is better",
			additional: map[string]interface{}{"distance": 0.25},
			wantScore:  0.75,
		},
		{
			name:       "identical vector scores highest",
			additional: map[string]interface{}{"distance": 0.0},
			wantScore:  1.0,
		},
		{
			name:       "hybrid relevance score used as is",
			additional: map[string]interface{}{"score": "0.8"},
			wantScore:  0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := parseChunks(graphqlResult("Documents_bot1", tt.additional), "Documents_bot1")
			if len(chunks) != 1 {
				t.Fatalf("parseChunks() returned %d chunks, want 1", len(chunks))
			}
			if got := chunks[0].Score; math.Abs(got-tt.wantScore) > 1e-6 {
				t.Errorf("score = %v, want %v", got, tt.wantScore)
			}
			if chunks[0].Content != "some chunk" || chunks[0].Order != 3 {
				t.Errorf("chunk fields lost in parsing: %+v", chunks[0])
			}
		})
	}
}

func TestParseChunksCloserBeatsFarther(t *testing.T) {
	near := parseChunks(graphqlResult("C", map[string]interface{}{"distance": 0.1}), "C")[0]
	far := parseChunks(graphqlResult("C", map[string]interface{}{"distance": 0.6}), "C")[0]
	if near.Score <= far.Score {
		t.Errorf("nearer chunk scored %v, farther %v; nearer must rank higher", near.Score, far.Score)
	}
}
