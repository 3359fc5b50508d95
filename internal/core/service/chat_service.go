package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
	"github.com/suatgpt/suatgpt-backend/internal/pkg/metrics"
)

// anonymousPasswordHash is not a bcrypt hash, so no password verifies against it.
const anonymousPasswordHash = "!anonymous-nopass"

type chatService struct {
	users  ports.UserRepository
	turns  ports.TurnRepository
	router ports.ModelRouter
	llm    ports.CompletionClient
	log    zerolog.Logger
	now    func() time.Time
}

// NewChatService returns a ChatService implementation.
func NewChatService(
	users ports.UserRepository,
	turns ports.TurnRepository,
	router ports.ModelRouter,
	llm ports.CompletionClient,
	log zerolog.Logger,
) ports.ChatService {
	return &chatService{
		users:  users,
		turns:  turns,
		router: router,
		llm:    llm,
		log:    log,
		now:    time.Now,
	}
}

// Chat persists the user's message, asks the routed provider for a reply and
// persists that reply. The user turn is committed before the provider call,
// so a crash mid-call leaves it without an AI turn.
func (s *chatService) Chat(ctx context.Context, user *domain.User, message, modelKey string) (*domain.Turn, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.ErrEmptyMessage
	}

	owner := user
	if owner == nil {
		var err error
		if owner, err = s.anonymous(ctx); err != nil {
			return nil, fmt.Errorf("chat: %w", err)
		}
	}

	if _, err := s.append(ctx, owner.ID, domain.SenderUser, message); err != nil {
		return nil, fmt.Errorf("chat: save user turn: %w", err)
	}

	route := s.router.Resolve(modelKey)
	reply := s.llm.Complete(ctx, route, message)
	if !reply.OK() {
		s.log.Warn().
			Err(reply.Reason).
			Str("model_key", route.Key).
			Str("outcome", string(reply.Outcome)).
			Str("username", owner.Username).
			Msg("provider call did not produce a reply")
	}

	turn, err := s.append(ctx, owner.ID, domain.SenderAI, reply.Text)
	if err != nil {
		return nil, fmt.Errorf("chat: save ai turn: %w", err)
	}
	return turn, nil
}

func (s *chatService) History(ctx context.Context, user *domain.User) ([]domain.Turn, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	turns, err := s.turns.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	return turns, nil
}

func (s *chatService) append(ctx context.Context, userID string, sender domain.Sender, content string) (*domain.Turn, error) {
	turn, err := s.turns.Append(ctx, &domain.Turn{
		UserID:    userID,
		Sender:    sender,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	metrics.ChatTurnsTotal.WithLabelValues(string(sender)).Inc()
	return turn, nil
}

// anonymous finds or creates the shared identity used for callers without a
// token. A concurrent create by another request is resolved by re-reading.
func (s *chatService) anonymous(ctx context.Context) (*domain.User, error) {
	u, err := s.users.FindByUsername(ctx, domain.AnonymousUsername)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find anonymous user: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     domain.AnonymousUsername,
		PasswordHash: anonymousPasswordHash,
		Role:         domain.RoleAnonymous,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, domain.ErrDuplicateIdentity) {
		return s.users.FindByUsername(ctx, domain.AnonymousUsername)
	}
	if err != nil {
		return nil, fmt.Errorf("create anonymous user: %w", err)
	}

	s.log.Info().Msg("anonymous identity created")
	return created, nil
}
