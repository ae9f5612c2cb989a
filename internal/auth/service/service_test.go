package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/email"
	"github.com/paddockhq/paddock/internal/auth/store"
	"github.com/paddockhq/paddock/internal/auth/store/drivers/sqlite"
	"github.com/paddockhq/paddock/pkg/cryptox"
	"github.com/paddockhq/paddock/pkg/idx"
	"github.com/paddockhq/paddock/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestSigner(t *testing.T) jwtx.Signer {
	t.Helper()

	signer, err := jwtx.NewSignerHS256([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return signer
}

// seedOwner inserts a confirmed, active owner with the given password.
func seedOwner(t *testing.T, st store.Store, emailAddr, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:             idx.New().String(),
		Email:          emailAddr,
		FullName:       "Grace Fielder",
		PasswordHash:   hash,
		Role:           domain.RoleOwner,
		Active:         true,
		EmailConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

// seedWorker inserts a confirmed, active worker employed by ownerID.
func seedWorker(t *testing.T, st store.Store, emailAddr, ownerID string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword("worker-password")
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:              idx.New().String(),
		Email:           emailAddr,
		FullName:        "Wes Paddock",
		PasswordHash:    hash,
		Role:            domain.RoleWorker,
		EmployerOwnerID: &ownerID,
		Active:          true,
		EmailConfirmed:  true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

// recordingSender captures outbound mail for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.Message(nil), s.sent...)
}
