package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"maintenance-service/internal/model"
)

func (e *env) deliver(t *testing.T, recipientID uint64, typ model.NotificationType) model.Notification {
	t.Helper()
	n := &model.Notification{Type: typ, NotifiableID: recipientID}
	if _, err := e.store.Notifications().InsertUnique(ctx(), n); err != nil {
		t.Fatalf("InsertUnique: %v", err)
	}
	return *n
}

func TestNotificationInbox(t *testing.T) {
	e := newEnv(t)
	first := e.deliver(t, e.client.ID, model.NotificationNewTicket)
	second := e.deliver(t, e.client.ID, model.NotificationTicketComment)
	foreign := e.deliver(t, e.tech.ID, model.NotificationInterventionAssigned)

	inbox, err := e.notifications.List(ctx(), e.clientP())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(inbox) != 2 || inbox[0].ID != second.ID || inbox[1].ID != first.ID {
		t.Fatalf("inbox = %+v", inbox)
	}
	if count, err := e.notifications.UnreadCount(ctx(), e.clientP()); err != nil || count != 2 {
		t.Errorf("unread = %d, %v", count, err)
	}

	if err := e.notifications.MarkRead(ctx(), e.clientP(), first.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := e.notifications.MarkRead(ctx(), e.clientP(), first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("already read: err = %v", err)
	}
	if err := e.notifications.MarkRead(ctx(), e.clientP(), foreign.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign notification: err = %v", err)
	}
	if count, _ := e.notifications.UnreadCount(ctx(), e.clientP()); count != 1 {
		t.Errorf("unread after MarkRead = %d", count)
	}

	marked, err := e.notifications.MarkAllRead(ctx(), e.clientP())
	if err != nil || marked != 1 {
		t.Errorf("MarkAllRead = %d, %v", marked, err)
	}
	for _, n := range e.store.NotificationsFor(e.client.ID) {
		if n.ReadAt == nil || !n.ReadAt.Equal(e.now) {
			t.Errorf("read_at = %v", n.ReadAt)
		}
	}
	if n := e.store.NotificationsFor(e.tech.ID); n[0].ReadAt != nil {
		t.Error("another user's notification was marked read")
	}
}

func TestDeleteNotification(t *testing.T) {
	e := newEnv(t)
	mine := e.deliver(t, e.client.ID, model.NotificationNewTicket)
	foreign := e.deliver(t, e.tech.ID, model.NotificationInterventionAssigned)

	if err := e.notifications.Delete(ctx(), e.clientP(), foreign.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete: err = %v", err)
	}
	if err := e.notifications.Delete(ctx(), e.clientP(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
	if err := e.notifications.Delete(ctx(), e.clientP(), mine.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := len(e.store.NotificationsFor(e.client.ID)); got != 0 {
		t.Errorf("notifications left = %d", got)
	}
	if got := len(e.store.NotificationsFor(e.tech.ID)); got != 1 {
		t.Errorf("foreign notifications = %d", got)
	}
	if _, err := e.notifications.List(ctx(), model.Principal{}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous: err = %v", err)
	}
}
