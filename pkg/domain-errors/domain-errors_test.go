package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeBlocked, Message: "client is blocked"}
		s.Equal("client is blocked", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeRateLimited}
		s.Equal("rate_limited", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	inner := errors.New("store unavailable")
	err := Wrap(inner, CodeUnavailable, "account lookup failed")
	s.ErrorIs(err, inner)
}

func (s *DomainErrorsSuite) TestWrapPreservesDomainCode() {
	base := New(CodeNotFound, "account not found")
	wrapped := Wrap(base, CodeInternal, "resolve principal")

	s.True(HasCode(wrapped, CodeNotFound), "original code must survive wrapping")
	s.False(HasCode(wrapped, CodeInternal))
}

func (s *DomainErrorsSuite) TestWrapNonDomainError() {
	wrapped := Wrap(fmt.Errorf("dial tcp: refused"), CodeUnavailable, "redis down")
	s.True(HasCode(wrapped, CodeUnavailable))
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	a := New(CodeForbidden, "missing grant")
	b := New(CodeForbidden, "different message")
	s.ErrorIs(a, b)

	c := New(CodeUnauthorized, "no principal")
	s.NotErrorIs(a, c)
}

func (s *DomainErrorsSuite) TestHasCodeOnPlainError() {
	s.False(HasCode(errors.New("plain"), CodeInternal))
	s.False(HasCode(nil, CodeInternal))
}
