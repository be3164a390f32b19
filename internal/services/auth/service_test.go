package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jmallard/chessrelay/internal/dependencies/mocks"
	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/storage/memory"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, DefaultConfig())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestRegisterSucceeds() {
	session, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.Equal("alice", session.Player.Username)
	s.Equal(model.InitialRating, session.Player.Rating)

	// Player and credentials are persisted
	player, err := s.storage.GetPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(session.PlayerID, player.ID)

	creds, err := s.storage.GetCredentialsByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.NotEqual("hunter22", creds.PasswordHash)
}

func (s *ServiceSuite) TestRegisterDuplicateUsername() {
	_, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice", "other@example.com", "hunter22")
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestRegisterShortPassword() {
	_, err := s.service.Register(s.ctx, "alice", "alice@example.com", "abc")
	s.ErrorIs(err, ErrWeakPassword)
}

func (s *ServiceSuite) TestLoginSucceeds() {
	_, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	session, err := s.service.Login(s.ctx, "alice", "hunter22")
	s.Require().NoError(err)
	s.Equal("alice", session.Player.Username)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	_, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "alice", "wrong")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "hunter22")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestValidateSession() {
	session, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	got, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal(session.PlayerID, got.PlayerID)

	_, err = s.service.ValidateSession("bogus")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionExpiry() {
	session, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	s.clock.Advance(8 * 24 * time.Hour)

	_, err = s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSession() {
	session, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	s.service.InvalidateSession(session.Token)

	_, err = s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestCleanExpiredSessions() {
	session, err := s.service.Register(s.ctx, "alice", "alice@example.com", "hunter22")
	s.Require().NoError(err)

	s.clock.Advance(8 * 24 * time.Hour)
	s.service.CleanExpiredSessions()

	_, err = s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}
