package service

import (
	"context"
	"fmt"
	"strings"

	"maintenance-service/internal/model"
	"maintenance-service/internal/notify"
	"maintenance-service/internal/policy"
	"maintenance-service/internal/repository"
)

type MessageService struct {
	store    repository.Store
	notifier Notifier
}

func NewMessageService(store repository.Store, notifier Notifier) *MessageService {
	return &MessageService{store: store, notifier: notifier}
}

type MessageInput struct {
	Name    string `validate:"required,max=255"`
	Email   string `validate:"required,max=255,email"`
	Subject string `validate:"required,max=255"`
	Body    string `validate:"required"`
}

// Submit stores a contact-form message from an anonymous visitor.
func (s *MessageService) Submit(ctx context.Context, in MessageInput) (*model.Message, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Body = strings.TrimSpace(in.Body)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	message := &model.Message{
		Name:    in.Name,
		Email:   in.Email,
		Subject: in.Subject,
		Body:    in.Body,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().Create(ctx, message); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		admins, err := adminRecipients(ctx, tx)
		if err != nil {
			return err
		}
		return appendEvent(ctx, tx, model.EventContactMessageReceived, message.ID, notify.AdminRecipients(admins), messageEvent{
			MessageID: message.ID,
			Name:      message.Name,
			Email:     message.Email,
			Subject:   message.Subject,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ContactMessage(ctx, *message)
	return message, nil
}

func (s *MessageService) List(ctx context.Context, principal model.Principal) ([]model.Message, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !policy.IsAdmin(principal) {
		return nil, ErrPermissionDenied
	}
	return s.store.Messages().List(ctx)
}

func (s *MessageService) MarkRead(ctx context.Context, principal model.Principal, id uint64) (*model.Message, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !policy.IsAdmin(principal) {
		return nil, ErrPermissionDenied
	}
	if err := s.store.Messages().MarkRead(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}
	message, err := s.store.Messages().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return message, nil
}
