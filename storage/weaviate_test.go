package storage

import (
	"testing"

	"ewintr.nl/eduvid/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestParseSearchHits(t *testing.T) {
	for _, tc := range []struct {
		name   string
		data   map[string]models.JSONObject
		exp    []SearchHit
		expErr bool
	}{
		{
			name: "hits",
			data: map[string]models.JSONObject{
				"Get": map[string]any{
					"Video": []any{
						map[string]any{
							"youtubeId":   "a",
							"title":       "Title a",
							"concepts":    "Inertia: objects keep moving (Physics 1.1)",
							"_additional": map[string]any{"distance": 0.12},
						},
						map[string]any{
							"title": "no id",
						},
						"garbage",
						map[string]any{
							"youtubeId": "b",
							"title":     "Title b",
						},
					},
				},
			},
			exp: []SearchHit{
				{YoutubeID: "a", Title: "Title a", Concepts: "Inertia: objects keep moving (Physics 1.1)", Distance: 0.12},
				{YoutubeID: "b", Title: "Title b"},
			},
		},
		{
			name: "empty class",
			data: map[string]models.JSONObject{
				"Get": map[string]any{"Video": nil},
			},
			exp: []SearchHit{},
		},
		{
			name:   "no get",
			data:   map[string]models.JSONObject{},
			expErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			act, err := parseSearchHits(tc.data)
			if tc.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, act)
		})
	}
}

func TestVideoProperties(t *testing.T) {
	video := &model.Video{
		YoutubeID: "a",
		Title:     "Title",
		Concepts: []model.Concept{
			{Title: "One", Reference: "Ref 1", Description: "First"},
			{Title: "Two", Reference: "Ref 2", Description: "Second"},
		},
	}

	assert.Equal(t, map[string]any{
		"youtubeId": "a",
		"title":     "Title",
		"concepts":  "One: First (Ref 1)\nTwo: Second (Ref 2)",
	}, videoProperties(video))
}
