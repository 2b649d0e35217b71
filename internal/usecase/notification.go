package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

// DeletionNotice reports one deleted card to a subscriber. When the
// subscriber is excluded from the deletion snapshot's visibility the notice
// is emitted redacted: content never leaks, even though the subscription
// itself proves prior awareness of the card.
type DeletionNotice struct {
	CardID              string
	CardIsViewable      bool
	FrontSide           *string
	DeletionDescription *string
	DeletionUTCDate     time.Time
}

// NotificationMetrics captures telemetry hooks for deletion fan-out.
type NotificationMetrics interface {
	IncDeletionNotice()
	IncRedactedNotice()
}

// NotificationService produces deletion notices for subscribed users. Pure
// read: it neither deletes anything nor advances LastNotificationUTCDate
// (a separate digest step owns that).
type NotificationService struct {
	users         port.UserRepository
	subscriptions port.CardSubscriptionRepository
	versions      port.CardVersionRepository
	logger        *zap.Logger
	metrics       NotificationMetrics
}

// NewNotificationService constructs the deletion notifier.
func NewNotificationService(users port.UserRepository, subscriptions port.CardSubscriptionRepository, versions port.CardVersionRepository) *NotificationService {
	return &NotificationService{
		users:         users,
		subscriptions: subscriptions,
		versions:      versions,
		logger:        zap.NewNop(),
	}
}

// WithLogger attaches a structured logger.
func (s *NotificationService) WithLogger(logger *zap.Logger) *NotificationService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics wires telemetry observers.
func (s *NotificationService) WithMetrics(metrics NotificationMetrics) *NotificationService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// NotifyDeletions returns one notice per subscribed card whose terminal
// deletion snapshot postdates the subscription's last notification, newest
// deletion first. Visibility exclusion is an expected branch here, not an
// error: excluded subscribers get a redacted notice.
func (s *NotificationService) NotifyDeletions(ctx context.Context, subscriberUserID string) ([]DeletionNotice, error) {
	subscriberUserID = strings.TrimSpace(subscriberUserID)
	if subscriberUserID == "" {
		return nil, ErrUserNotFound
	}

	if _, err := s.users.GetByID(ctx, subscriberUserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load subscriber: %w", err)
	}

	subscriptions, err := s.subscriptions.ListForUser(ctx, subscriberUserID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	notices := make([]DeletionNotice, 0)
	for _, subscription := range subscriptions {
		deletion, err := s.versions.GetDeletionByCardID(ctx, subscription.CardID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Card still alive, nothing to report.
				continue
			}
			return nil, fmt.Errorf("load deletion snapshot for card %s: %w", subscription.CardID, err)
		}

		if !deletion.VersionUTCDate.After(subscription.LastNotificationUTCDate) {
			continue
		}

		notice := DeletionNotice{
			CardID:          subscription.CardID,
			DeletionUTCDate: deletion.VersionUTCDate,
		}

		if deletion.Content.Visibility.CanView(subscriberUserID) {
			front := deletion.Content.FrontSide
			description := deletion.VersionDescription
			notice.CardIsViewable = true
			notice.FrontSide = &front
			notice.DeletionDescription = &description
		} else if s.metrics != nil {
			s.metrics.IncRedactedNotice()
		}

		if s.metrics != nil {
			s.metrics.IncDeletionNotice()
		}

		notices = append(notices, notice)
	}

	sort.SliceStable(notices, func(i, j int) bool {
		return notices[i].DeletionUTCDate.After(notices[j].DeletionUTCDate)
	})

	s.logger.Debug("deletion notices computed",
		zap.String("subscriber_id", subscriberUserID),
		zap.Int("notices", len(notices)),
	)

	return notices, nil
}
