package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
	"telegram-legal-assistant/internal/domain/ports/repository"
)

// documentStrategy shapes the model prompt for one document kind. Each kind
// has its own required structure; the prompt asks the model to fill it as
// JSON matching model.Document.
type documentStrategy struct {
	kind         model.DocumentKind
	display      string
	instructions string
}

var documentStrategies = map[model.DocumentKind]documentStrategy{
	model.DocumentKindClaim: {
		kind:    model.DocumentKindClaim,
		display: "Statement of claim",
		instructions: "Draft a statement of claim. Sections: court header with " +
			"parties, factual circumstances, legal grounds with statute " +
			"references, demands, attachments list.",
	},
	model.DocumentKindComplaint: {
		kind:    model.DocumentKindComplaint,
		display: "Complaint",
		instructions: "Draft a formal complaint to a supervisory authority. " +
			"Sections: addressee, complainant details, described violation, " +
			"requested action, date and signature block.",
	},
	model.DocumentKindContract: {
		kind:    model.DocumentKindContract,
		display: "Contract",
		instructions: "Draft a contract. Sections: parties and definitions, " +
			"subject, obligations of each party, price and settlement, " +
			"liability, term and termination, requisites.",
	},
}

// DocumentKinds lists the kinds available for drafting, for menu rendering.
func DocumentKinds() []model.DocumentKind {
	return []model.DocumentKind{
		model.DocumentKindClaim,
		model.DocumentKindComplaint,
		model.DocumentKindContract,
	}
}

// DocumentKindDisplay returns the user-facing name for a kind, or "".
func DocumentKindDisplay(kind model.DocumentKind) string {
	return documentStrategies[kind].display
}

// DocumentUseCase drafts structured legal documents: the model produces the
// content as a structured description, the renderer turns it into a file.
type DocumentUseCase struct {
	ai       adapter.AIServiceAdapter
	renderer adapter.DocumentRenderer
	users    repository.UserRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewDocumentUseCase(ai adapter.AIServiceAdapter, renderer adapter.DocumentRenderer, users repository.UserRepository, logger *zerolog.Logger) *DocumentUseCase {
	docLog := logger.With().Str("component", "DocumentUC").Logger()
	return &DocumentUseCase{
		ai:       ai,
		renderer: renderer,
		users:    users,
		log:      &docLog,
		now:      time.Now,
	}
}

// Draft produces the document file for the kind from the user's description
// and records the request in their history. Returns the file bytes and a
// suggested filename.
func (uc *DocumentUseCase) Draft(ctx context.Context, userID string, kind model.DocumentKind, details string) ([]byte, string, error) {
	strat, ok := documentStrategies[kind]
	if !ok {
		return nil, "", fmt.Errorf("%w: document kind %q", domain.ErrInvalidArgument, kind)
	}
	if strings.TrimSpace(details) == "" {
		return nil, "", domain.ErrInvalidArgument
	}

	prompt := strat.instructions + "\n\nSituation described by the client:\n" + details +
		"\n\nRespond with ONLY a JSON object: {\"title\": string, " +
		"\"parties\": {string: string}, \"sections\": [{\"heading\": string, " +
		"\"body\": string, \"items\": [string]}]}."

	raw, err := uc.ai.Chat(ctx, []adapter.Message{
		{Role: "system", Content: legalSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, "", fmt.Errorf("ai draft: %w", err)
	}

	doc, err := parseDocumentJSON(raw, kind)
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("model returned unparseable document, falling back to plain text")
		doc = &model.Document{
			Kind:     kind,
			Title:    strat.display,
			Sections: []model.DocumentSection{{Heading: strat.display, Body: raw}},
		}
	}

	data, filename, err := uc.renderer.Render(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("render document: %w", err)
	}

	session := model.ConsultSession{
		ID:              ulid.Make().String(),
		InitialQuestion: details,
		Type:            "document",
		Timestamp:       uc.now(),
		Dialog: []model.DialogTurn{
			{Role: "user", Message: details},
			{Role: "bot", Message: "document: " + filename},
		},
	}
	if err := uc.users.PushToArray(ctx, userID, "previous_requests", session); err != nil {
		uc.log.Error().Err(err).Str("user_id", userID).Msg("failed to persist document request")
	}
	return data, filename, nil
}

// RateLastDocument stores the user's rating on their latest document session.
func (uc *DocumentUseCase) RateLastDocument(ctx context.Context, userID, rating string) error {
	u, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	last := u.LastSession()
	if last == nil || last.Type != "document" {
		return domain.ErrNotFound
	}
	last.DocumentRating = rating
	if err := uc.users.ReplaceArray(ctx, userID, "previous_requests", u.Sessions); err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	return nil
}

// parseDocumentJSON extracts the structured document from the model output,
// tolerating surrounding prose or a code fence.
func parseDocumentJSON(raw string, kind model.DocumentKind) (*model.Document, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	var doc model.Document
	if err := json.Unmarshal([]byte(raw[start:end+1]), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("document has no sections")
	}
	doc.Kind = kind
	if doc.Title == "" {
		doc.Title = documentStrategies[kind].display
	}
	return &doc, nil
}
