package usecases

import (
	"context"
	"errors"
	"io"
	"strings"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
)

const (
	maxURLContent  = 10000
	maxPDFContent  = 15000
	maxPDFPages    = 20
	previewLength  = 200
	knowledgeLimit = 100
)

type KnowledgeUsecase struct {
	store   interfaces.KnowledgeStore
	fetcher interfaces.PageFetcher
	pdf     interfaces.PDFExtractor
	events  *Broadcaster
	log     zerolog.Logger
}

func NewKnowledgeUsecase(store interfaces.KnowledgeStore, fetcher interfaces.PageFetcher, pdf interfaces.PDFExtractor, events *Broadcaster, log zerolog.Logger) *KnowledgeUsecase {
	return &KnowledgeUsecase{store: store, fetcher: fetcher, pdf: pdf, events: events, log: log}
}

func (uc *KnowledgeUsecase) List(ctx context.Context, accountID string) ([]entities.KnowledgeSource, error) {
	return uc.store.ListSources(ctx, accountID, knowledgeLimit)
}

// AddURL stores a web page as a source. A page that cannot be fetched is
// still stored, with status error.
func (uc *KnowledgeUsecase) AddURL(ctx context.Context, accountID, name, rawURL string) (*entities.KnowledgeSource, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, entities.Invalid("URL richiesto")
	}
	if !validHTTPURL(rawURL) {
		return nil, entities.Invalid("URL non valido")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = rawURL
	}

	text, err := uc.fetcher.FetchText(ctx, rawURL)
	if err != nil {
		uc.log.Warn().Err(err).Str("url", rawURL).Msg("knowledge fetch failed")
		text = ""
	}
	text = truncate(strings.TrimSpace(text), maxURLContent)

	src := newSource(accountID, entities.SourceURL, name, text)
	src.URL = &rawURL
	if text == "" {
		src.Status = entities.SourceError
	}
	if err := uc.store.CreateSource(ctx, src); err != nil {
		return nil, err
	}
	uc.ingested(ctx, src)
	return src, nil
}

// AddPDF extracts the text of an uploaded PDF and stores it as a source.
func (uc *KnowledgeUsecase) AddPDF(ctx context.Context, accountID, name string, r io.ReaderAt, size int64) (*entities.KnowledgeSource, error) {
	text, err := uc.pdf.ExtractText(r, size, maxPDFPages)
	if err != nil {
		uc.log.Warn().Err(err).Str("account_id", accountID).Msg("pdf extraction failed")
		return nil, entities.Invalid("Errore nella lettura del PDF")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "documento.pdf"
	}
	src := newSource(accountID, entities.SourcePDF, name, truncate(text, maxPDFContent))
	if err := uc.store.CreateSource(ctx, src); err != nil {
		return nil, err
	}
	uc.ingested(ctx, src)
	return src, nil
}

func (uc *KnowledgeUsecase) Delete(ctx context.Context, accountID, id string) error {
	err := uc.store.DeleteSource(ctx, accountID, id)
	if errors.Is(err, entities.ErrNotFound) {
		return entities.NotFound("Fonte non trovata")
	}
	return err
}

func (uc *KnowledgeUsecase) ingested(ctx context.Context, src *entities.KnowledgeSource) {
	if src.Status != entities.SourceActive {
		return
	}
	uc.events.Emit(ctx, entities.EventKnowledgeIngested, src.AccountID, map[string]any{
		"source_id": src.ID,
		"type":      src.Type,
		"name":      src.Name,
		"chars":     len([]rune(src.Content)),
	})
}

func newSource(accountID, kind, name, text string) *entities.KnowledgeSource {
	src := &entities.KnowledgeSource{
		ID:        newID(),
		AccountID: accountID,
		Type:      kind,
		Name:      name,
		Content:   text,
		Status:    entities.SourceActive,
		CreatedAt: now(),
	}
	if text != "" {
		preview := truncate(text, previewLength)
		src.ContentPreview = &preview
	}
	return src
}
