package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tomikjetu/vpwa26/internal/archive"
	"github.com/tomikjetu/vpwa26/internal/engine"
	"github.com/tomikjetu/vpwa26/internal/notify"
)

type NotifierMock struct {
	mock.Mock
}

var _ notify.Notifier = (*NotifierMock)(nil)

func (m *NotifierMock) Notify(n notify.Notice) {
	m.Called(n)
}

func (m *NotifierMock) System(title, body string) {
	m.Called(title, body)
}

type CredentialsMock struct {
	mock.Mock
}

var _ engine.Credentials = (*CredentialsMock)(nil)

func (m *CredentialsMock) Token() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *CredentialsMock) Clear() error {
	args := m.Called()
	return args.Error(0)
}

type ConfirmerMock struct {
	mock.Mock
}

var _ engine.Confirmer = (*ConfirmerMock)(nil)

func (m *ConfirmerMock) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

type ArchiveRepositoryMock struct {
	mock.Mock
}

var _ archive.Repository = (*ArchiveRepositoryMock)(nil)

func (m *ArchiveRepositoryMock) SaveMessage(ctx context.Context, msg archive.ArchivedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *ArchiveRepositoryMock) SaveEvent(ctx context.Context, topic string, channelID int, detail string) error {
	args := m.Called(ctx, topic, channelID, detail)
	return args.Error(0)
}

func (m *ArchiveRepositoryMock) RecentMessages(ctx context.Context, channelID, limit int) ([]archive.ArchivedMessage, error) {
	args := m.Called(ctx, channelID, limit)
	var list []archive.ArchivedMessage
	if val := args.Get(0); val != nil {
		list = val.([]archive.ArchivedMessage)
	}
	return list, args.Error(1)
}
