package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ewintr.nl/eduvid/model"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	className = "Video"
)

type Weaviate struct {
	client *weaviate.Client
}

func NewWeaviate(host, weaviateApiKey, openaiApiKey string) (*Weaviate, error) {
	config := weaviate.Config{
		Scheme:     "https",
		Host:       host,
		AuthConfig: auth.ApiKey{Value: weaviateApiKey},
		Headers: map[string]string{
			"X-OpenAI-Api-Key": openaiApiKey,
		},
	}

	c, err := weaviate.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Weaviate{client: c}, nil
}

// ResetSchema drops the class with all indexed videos and creates it again.
func (w *Weaviate) ResetSchema(ctx context.Context) error {
	if err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
		// Weaviate will return a 400 if the class does not exist
		if status, ok := err.(*fault.WeaviateClientError); ok && status.StatusCode != http.StatusBadRequest {
			return err
		}
	}

	classObj := &models.Class{
		Class:      className,
		Vectorizer: "text2vec-openai",
		ModuleConfig: map[string]any{
			"text2vec-openai": map[string]any{
				"model":        "ada",
				"modelVersion": "002",
				"type":         "text",
			},
		},
	}

	return w.client.Schema().ClassCreator().WithClass(classObj).Do(ctx)
}

func videoProperties(video *model.Video) map[string]any {
	return map[string]any{
		"youtubeId": string(video.YoutubeID),
		"title":     video.Title,
		"concepts":  conceptText(video.Concepts),
	}
}

func conceptText(concepts []model.Concept) string {
	parts := make([]string, 0, len(concepts))
	for _, c := range concepts {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", c.Title, c.Description, c.Reference))
	}
	return strings.Join(parts, "\n")
}

func (w *Weaviate) Save(ctx context.Context, video *model.Video) error {
	vID := video.ID.String()
	exists, err := w.client.Data().
		Checker().
		WithID(vID).
		WithClassName(className).
		Do(ctx)
	if err != nil {
		return err
	}

	if exists {
		return w.client.Data().
			Updater().
			WithID(vID).
			WithClassName(className).
			WithProperties(videoProperties(video)).
			Do(ctx)
	}

	_, err = w.client.Data().
		Creator().
		WithClassName(className).
		WithID(vID).
		WithProperties(videoProperties(video)).
		Do(ctx)

	return err
}

func (w *Weaviate) Delete(ctx context.Context, video *model.Video) error {
	err := w.client.Data().
		Deleter().
		WithClassName(className).
		WithID(video.ID.String()).
		Do(ctx)
	if status, ok := err.(*fault.WeaviateClientError); ok && status.StatusCode == http.StatusNotFound {
		return nil
	}

	return err
}

func (w *Weaviate) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	nearText := w.client.GraphQL().
		NearTextArgBuilder().
		WithConcepts([]string{query})

	resp, err := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(
			graphql.Field{Name: "youtubeId"},
			graphql.Field{Name: "title"},
			graphql.Field{Name: "concepts"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search failed: %s", resp.Errors[0].Message)
	}

	return parseSearchHits(resp.Data)
}

func parseSearchHits(data map[string]models.JSONObject) ([]SearchHit, error) {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected search response: missing Get")
	}
	items, ok := get[className].([]any)
	if !ok {
		return []SearchHit{}, nil
	}

	hits := make([]SearchHit, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		hit := SearchHit{}
		if s, ok := obj["youtubeId"].(string); ok {
			hit.YoutubeID = model.YoutubeVideoID(s)
		}
		hit.Title, _ = obj["title"].(string)
		hit.Concepts, _ = obj["concepts"].(string)
		if add, ok := obj["_additional"].(map[string]any); ok {
			hit.Distance, _ = add["distance"].(float64)
		}
		if hit.YoutubeID == "" {
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}
