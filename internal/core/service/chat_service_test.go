package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

type stubTurnRepo struct {
	mu        sync.Mutex
	turns     []domain.Turn
	appendErr func(turn *domain.Turn) error
}

func (r *stubTurnRepo) Append(_ context.Context, turn *domain.Turn) (*domain.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		if err := r.appendErr(turn); err != nil {
			return nil, err
		}
	}
	clone := *turn
	clone.ID = strconv.Itoa(len(r.turns) + 1)
	r.turns = append(r.turns, clone)
	return &clone, nil
}

func (r *stubTurnRepo) ListByUser(_ context.Context, userID string) ([]domain.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Turn
	for _, t := range r.turns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type stubCompletion struct {
	calls  []domain.Route
	result domain.Completion
}

func (s *stubCompletion) Complete(_ context.Context, route domain.Route, _ string) domain.Completion {
	s.calls = append(s.calls, route)
	return s.result
}

type chatFixture struct {
	users *stubUserRepo
	turns *stubTurnRepo
	llm   *stubCompletion
	svc   *chatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	router, err := NewStaticModelRouter(testRoutes())
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	f := &chatFixture{
		users: newStubUserRepo(),
		turns: &stubTurnRepo{},
		llm:   &stubCompletion{result: domain.Completion{Text: "hi there", Outcome: domain.OutcomeSuccess}},
	}
	f.svc = NewChatService(f.users, f.turns, router, f.llm, zerolog.Nop()).(*chatService)
	return f
}

func TestChatService_AnonymousUnknownKey(t *testing.T) {
	f := newChatFixture(t)

	turn, err := f.svc.Chat(context.Background(), nil, "hello", "unknown-key")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if turn.Sender != domain.SenderAI || turn.Content != "hi there" {
		t.Fatalf("unexpected reply turn: %+v", turn)
	}

	if len(f.llm.calls) != 1 || f.llm.calls[0].Key != domain.DefaultModelKey {
		t.Fatalf("expected one call to the default route, got %+v", f.llm.calls)
	}

	anon, err := f.users.FindByUsername(context.Background(), domain.AnonymousUsername)
	if err != nil {
		t.Fatalf("anonymous identity not created: %v", err)
	}
	if anon.Role != domain.RoleAnonymous {
		t.Fatalf("expected ANONYMOUS role, got %s", anon.Role)
	}

	if len(f.turns.turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(f.turns.turns))
	}
	user, ai := f.turns.turns[0], f.turns.turns[1]
	if user.Sender != domain.SenderUser || user.Content != "hello" || user.UserID != anon.ID {
		t.Fatalf("unexpected user turn: %+v", user)
	}
	if ai.Sender != domain.SenderAI || ai.UserID != anon.ID {
		t.Fatalf("unexpected ai turn: %+v", ai)
	}
}

func TestChatService_ReusesAnonymousIdentity(t *testing.T) {
	f := newChatFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Chat(context.Background(), nil, "ping", ""); err != nil {
			t.Fatalf("Chat #%d: %v", i, err)
		}
	}
	if n := f.users.count(domain.AnonymousUsername); n != 1 {
		t.Fatalf("expected a single anonymous identity, got %d", n)
	}
	anon, _ := f.users.FindByUsername(context.Background(), domain.AnonymousUsername)
	turns, _ := f.turns.ListByUser(context.Background(), anon.ID)
	if len(turns) != 6 {
		t.Fatalf("expected 6 turns on the anonymous identity, got %d", len(turns))
	}
}

func TestChatService_EmptyMessage(t *testing.T) {
	f := newChatFixture(t)

	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := f.svc.Chat(context.Background(), nil, msg, ""); !errors.Is(err, domain.ErrEmptyMessage) {
			t.Fatalf("expected ErrEmptyMessage for %q, got %v", msg, err)
		}
	}
	if len(f.turns.turns) != 0 || len(f.llm.calls) != 0 {
		t.Fatalf("expected no side effects, got %d turns and %d calls", len(f.turns.turns), len(f.llm.calls))
	}
	if f.users.count(domain.AnonymousUsername) != 0 {
		t.Fatalf("anonymous identity should not be created for an empty message")
	}
}

func TestChatService_ProviderFailureIsPersistedAsReply(t *testing.T) {
	f := newChatFixture(t)
	f.llm.result = domain.Completion{
		Text:    "Sorry, the AI service (deepseek) call failed.",
		Outcome: domain.OutcomeProviderError,
		Reason:  errors.New("dial tcp: connection refused"),
	}
	alice, _ := f.users.Create(context.Background(), &domain.User{Username: "alice", Role: domain.RoleUser})

	turn, err := f.svc.Chat(context.Background(), alice, "hello", domain.ModelDeepSeek)
	if err != nil {
		t.Fatalf("provider failure must not surface as error: %v", err)
	}
	if turn.Content != f.llm.result.Text {
		t.Fatalf("expected fallback text, got %q", turn.Content)
	}
	if f.llm.calls[0].Key != domain.ModelDeepSeek {
		t.Fatalf("expected deepseek route, got %s", f.llm.calls[0].Key)
	}

	history, _ := f.svc.History(context.Background(), alice)
	if len(history) != 2 || history[1].Content != f.llm.result.Text {
		t.Fatalf("unexpected history: %+v", history)
	}
}

// The user turn is committed before the provider is called; when the AI turn
// cannot be stored the user turn stays behind without a reply.
func TestChatService_UserTurnSurvivesFailedReplyWrite(t *testing.T) {
	f := newChatFixture(t)
	f.turns.appendErr = func(turn *domain.Turn) error {
		if turn.Sender == domain.SenderAI {
			return errors.New("disk full")
		}
		return nil
	}
	bob, _ := f.users.Create(context.Background(), &domain.User{Username: "bob", Role: domain.RoleUser})

	if _, err := f.svc.Chat(context.Background(), bob, "hello", ""); err == nil {
		t.Fatalf("expected error when the AI turn cannot be saved")
	}

	history, _ := f.svc.History(context.Background(), bob)
	if len(history) != 1 || history[0].Sender != domain.SenderUser {
		t.Fatalf("expected a dangling USER turn, got %+v", history)
	}
}

func TestChatService_UserTurnWriteFailureSkipsProvider(t *testing.T) {
	f := newChatFixture(t)
	f.turns.appendErr = func(*domain.Turn) error { return errors.New("db down") }
	bob, _ := f.users.Create(context.Background(), &domain.User{Username: "bob", Role: domain.RoleUser})

	if _, err := f.svc.Chat(context.Background(), bob, "hello", ""); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.llm.calls) != 0 {
		t.Fatalf("provider must not be called when the user turn was not saved")
	}
}

func TestChatService_History(t *testing.T) {
	f := newChatFixture(t)
	carol, _ := f.users.Create(context.Background(), &domain.User{Username: "carol", Role: domain.RoleUser})

	history, err := f.svc.History(context.Background(), carol)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", history)
	}

	_, _ = f.svc.Chat(context.Background(), carol, "first", "")
	_, _ = f.svc.Chat(context.Background(), carol, "second", "")
	_, _ = f.svc.Chat(context.Background(), nil, "someone else", "")

	history, _ = f.svc.History(context.Background(), carol)
	want := []string{"first", "hi there", "second", "hi there"}
	if len(history) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(history))
	}
	for i, w := range want {
		if history[i].Content != w {
			t.Fatalf("turn %d: expected %q, got %q", i, w, history[i].Content)
		}
	}

	if _, err := f.svc.History(context.Background(), nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for nil user, got %v", err)
	}
}

type racingUserRepo struct {
	*stubUserRepo
	raced bool
}

// FindByUsername misses once, simulating another request inserting the
// anonymous identity between the lookup and the create.
func (r *racingUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if !r.raced {
		r.raced = true
		_, _ = r.stubUserRepo.Create(ctx, &domain.User{Username: username, Role: domain.RoleAnonymous})
		return nil, domain.ErrUserNotFound
	}
	return r.stubUserRepo.FindByUsername(ctx, username)
}

func TestChatService_AnonymousCreateRace(t *testing.T) {
	f := newChatFixture(t)
	repo := &racingUserRepo{stubUserRepo: f.users}
	f.svc.users = repo

	if _, err := f.svc.Chat(context.Background(), nil, "hello", ""); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if f.users.count(domain.AnonymousUsername) != 1 {
		t.Fatalf("expected a single anonymous identity")
	}
}
