package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"demand-copilot-api/pkg/gemini"
	"demand-copilot-api/pkg/models"
	"demand-copilot-api/pkg/storage"
)

// TextGenerator is the language-model collaborator of the chat service.
// *gemini.Client satisfies it; tests substitute a canned fake.
type TextGenerator interface {
	Chat(ctx context.Context, systemPrompt string, history []gemini.Content, message string, temperature float64, maxTokens int) (string, error)
}

// ChatOptions tune the generation side of the chat service.
type ChatOptions struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// ChatService answers sales co-pilot questions. Each message is
// classified, enriched with the matching slice of stored forecasts and
// sent to the language model together with the session history; the
// exchange is logged for the stats endpoint.
type ChatService struct {
	intents   *IntentService
	contexts  *ContextService
	generator TextGenerator
	sessions  SessionStore
	store     storage.Store
	logger    *logrus.Logger
	opts      ChatOptions
}

// NewChatService wires the chat pipeline.
func NewChatService(
	intents *IntentService,
	contexts *ContextService,
	generator TextGenerator,
	sessions SessionStore,
	store storage.Store,
	logger *logrus.Logger,
	opts ChatOptions,
) *ChatService {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &ChatService{
		intents:   intents,
		contexts:  contexts,
		generator: generator,
		sessions:  sessions,
		store:     store,
		logger:    logger,
		opts:      opts,
	}
}

// HandleMessage runs one question through the full pipeline and returns
// the model's answer. An empty userID maps to the shared "default"
// session, matching anonymous web clients.
func (cs *ChatService) HandleMessage(ctx context.Context, userID, message string) (*models.ChatResponse, error) {
	if userID == "" {
		userID = "default"
	}

	session, err := cs.sessions.Get(ctx, userID)
	if err != nil {
		cs.logger.WithError(err).Warn("chat: session lookup failed, starting fresh")
	}
	if session == nil {
		session = &ChatSession{ID: uuid.New().String()}
	}

	intent := cs.intents.Classify(message)
	qc := cs.contexts.BuildContext(ctx, intent, message)
	digest := cs.contexts.RenderDigest(qc)

	prompt := message
	if digest != "" {
		prompt = digest + "\nPREGUNTA DEL USUARIO:\n" + message
	}

	reply, err := cs.generator.Chat(ctx, cs.opts.SystemPrompt, session.History, prompt, cs.opts.Temperature, cs.opts.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	session.History = append(session.History,
		gemini.Content{Role: "user", Parts: []gemini.Part{{Text: prompt}}},
		gemini.Content{Role: "model", Parts: []gemini.Part{{Text: reply}}},
	)
	session.History = trimHistory(session.History)
	if err := cs.sessions.Save(ctx, userID, session); err != nil {
		cs.logger.WithError(err).Warn("chat: session save failed")
	}

	if err := cs.store.LogConsultation(ctx, userID, message, reply); err != nil {
		cs.logger.WithError(err).Warn("chat: consultation log failed")
	}

	cs.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"intent":       intent.Kind,
		"context_used": digest != "",
	}).Info("chat: message handled")

	return &models.ChatResponse{
		Response:    reply,
		ContextUsed: digest != "",
		SessionID:   session.ID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ResetSession discards the user's conversation history.
func (cs *ChatService) ResetSession(ctx context.Context, userID string) error {
	if userID == "" {
		userID = "default"
	}
	return cs.sessions.Delete(ctx, userID)
}
