package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/b3"
	"github.com/codebuildervaibhav/lecture-grader/internal/embedding"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// Service embeds lecture material into an Index and retrieves it by prompt.
type Service struct {
	embedder embedding.Embedder
	index    Index
	topK     int
	log      logrus.FieldLogger
}

func NewService(embedder embedding.Embedder, index Index, topK int, log logrus.FieldLogger) *Service {
	if topK <= 0 {
		topK = 1
	}
	return &Service{embedder: embedder, index: index, topK: topK, log: log}
}

// TopK is the default number of documents returned by Retrieve.
func (s *Service) TopK() int { return s.topK }

// DocumentID returns the id a document is stored under: its own id when set,
// otherwise the blake3 hash of title and content.
func DocumentID(doc types.LectureDocument) string {
	if doc.ID != "" {
		return doc.ID
	}
	return b3.HashString(doc.Title + "\x00" + doc.Content)
}

// Ingest embeds each document's content and upserts it with text and title
// metadata. It stops at the first failure; earlier documents stay stored.
func (s *Service) Ingest(ctx context.Context, docs []types.LectureDocument) ([]string, error) {
	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			return ids, apperr.Newf(apperr.KindInvalidInput, "ingest", "document %d has empty content", i)
		}

		vec, err := s.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return ids, fmt.Errorf("embed document %d: %w", i, err)
		}

		id := DocumentID(doc)
		meta := map[string]string{metaText: doc.Content, metaTitle: doc.Title}
		if err := s.index.Upsert(ctx, id, vec, meta); err != nil {
			return ids, fmt.Errorf("upsert document %d: %w", i, err)
		}

		s.log.WithFields(logrus.Fields{"id": id, "title": doc.Title}).Info("Inserted lecture document")
		ids = append(ids, id)
	}
	return ids, nil
}

// Retrieve embeds prompt and returns the text of the topK closest documents.
// topK <= 0 uses the service default. Matches without text metadata are
// skipped; no usable match yields Found=false.
func (s *Service) Retrieve(ctx context.Context, prompt string, topK int) (types.RetrievalResult, error) {
	if topK <= 0 {
		topK = s.topK
	}

	vec, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		return types.RetrievalResult{}, fmt.Errorf("embed prompt: %w", err)
	}

	matches, err := s.index.Query(ctx, vec, topK)
	if err != nil {
		return types.RetrievalResult{}, err
	}

	docs := []string{}
	for _, m := range matches {
		text, ok := m.Metadata[metaText]
		if !ok {
			continue
		}
		docs = append(docs, text)
	}

	if len(docs) == 0 {
		s.log.WithField("matches", len(matches)).Debug("No documents found for prompt")
		return types.RetrievalResult{Documents: []string{}, Found: false}, nil
	}
	return types.RetrievalResult{Documents: docs, Found: true}, nil
}

// Count reports the number of stored documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}
