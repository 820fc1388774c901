package services

import (
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "bolso/internal/errors"
	"bolso/internal/logger"
	"bolso/internal/models"
	"bolso/internal/pagination"
)

// templateCacheTTL bounds staleness after a template row is edited.
const templateCacheTTL = 10 * time.Minute

// notificationService renders templated events into in-app rows and
// fans delivery out to push and email.
type notificationService struct {
	db          *gorm.DB
	cache       *ristretto.Cache[string, *models.NotificationTemplate]
	pushSender  PushSender
	emailSender EmailSender
}

// NewNotificationService creates a new NotificationServicer. Either
// sender may be nil, which disables that channel.
func NewNotificationService(db *gorm.DB, pushSender PushSender, emailSender EmailSender) (NotificationServicer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *models.NotificationTemplate]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &notificationService{
		db:          db,
		cache:       cache,
		pushSender:  pushSender,
		emailSender: emailSender,
	}, nil
}

// Send renders and delivers one notification event. It never returns an
// error: a broken notification pipeline must not fail the ledger
// operation that triggered it, so every problem is logged and dropped.
func (s *notificationService) Send(userID string, notificationType models.NotificationType, vars map[string]string, priority models.NotificationPriority) {
	log := logger.Get()

	settings, err := s.GetSettings(userID)
	if err != nil {
		log.Errorw("notification dropped: settings unavailable", "user_id", userID, "type", notificationType, "error", err)
		return
	}
	if !typeEnabled(settings, notificationType) {
		return
	}

	template, err := s.template(notificationType)
	if err != nil {
		log.Errorw("notification dropped: no template", "type", notificationType, "error", err)
		return
	}

	title := interpolate(template.TitleTemplate, vars)
	body := interpolate(template.BodyTemplate, vars)
	if priority == "" {
		priority = template.Priority
	}

	if settings.InAppEnabled {
		notification := &models.Notification{
			UserID:   userID,
			Type:     notificationType,
			Title:    title,
			Body:     body,
			Priority: priority,
		}
		if err := s.db.Create(notification).Error; err != nil {
			log.Errorw("failed to store notification", "user_id", userID, "type", notificationType, "error", err)
		}
	}

	var g errgroup.Group
	if settings.PushEnabled && s.pushSender != nil {
		g.Go(func() error {
			tokens, err := s.deviceTokens(userID)
			if err != nil {
				return err
			}
			if len(tokens) == 0 {
				return nil
			}
			return s.pushSender.SendPush(userID, title, body, tokens)
		})
	}
	if settings.EmailEnabled && s.emailSender != nil {
		g.Go(func() error {
			var user models.User
			if err := s.db.Select("email").Where("id = ?", userID).First(&user).Error; err != nil {
				return err
			}
			return s.emailSender.SendEmail(user.Email, title, body)
		})
	}
	if err := g.Wait(); err != nil {
		log.Errorw("notification delivery failed", "user_id", userID, "type", notificationType, "error", err)
	}
}

// List returns a user's in-app notifications, newest first.
func (s *notificationService) List(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()

	base := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// MarkRead marks one notification as read. Already-read rows keep their
// original ReadAt.
func (s *notificationService) MarkRead(userID, notificationID string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.Where("id = ?", notificationID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if notification.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	if notification.IsRead {
		return &notification, nil
	}

	now := time.Now()
	err := s.db.Model(&notification).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": now,
	}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	notification.IsRead = true
	notification.ReadAt = &now
	return &notification, nil
}

// MarkAllRead marks every unread notification read and reports how many
// rows changed.
func (s *notificationService) MarkAllRead(userID string) (int64, error) {
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}

// GetSettings returns the user's settings, creating the default row on
// first access.
func (s *notificationService) GetSettings(userID string) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := s.db.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	settings = models.NotificationSettings{
		UserID:             userID,
		PushEnabled:        true,
		EmailEnabled:       true,
		InAppEnabled:       true,
		BudgetAlerts:       true,
		GoalUpdates:        true,
		RecurringReminders: true,
	}
	if err := s.db.Create(&settings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &settings, nil
}

// UpdateSettings applies the provided toggles.
func (s *notificationService) UpdateSettings(userID string, in UpdateSettingsInput) (*models.NotificationSettings, error) {
	settings, err := s.GetSettings(userID)
	if err != nil {
		return nil, err
	}

	if in.PushEnabled != nil {
		settings.PushEnabled = *in.PushEnabled
	}
	if in.EmailEnabled != nil {
		settings.EmailEnabled = *in.EmailEnabled
	}
	if in.InAppEnabled != nil {
		settings.InAppEnabled = *in.InAppEnabled
	}
	if in.BudgetAlerts != nil {
		settings.BudgetAlerts = *in.BudgetAlerts
	}
	if in.GoalUpdates != nil {
		settings.GoalUpdates = *in.GoalUpdates
	}
	if in.RecurringReminders != nil {
		settings.RecurringReminders = *in.RecurringReminders
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return settings, nil
}

// RegisterDeviceToken upserts a push target. Re-registering an existing
// token moves it to the new user, which covers device handoffs.
func (s *notificationService) RegisterDeviceToken(userID, token, platform string) error {
	if token == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "token is required")
	}

	var existing models.DeviceToken
	err := s.db.Where("token = ?", token).First(&existing).Error
	switch {
	case err == nil:
		existing.UserID = userID
		existing.Platform = platform
		if err := s.db.Save(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		deviceToken := &models.DeviceToken{UserID: userID, Token: token, Platform: platform}
		if err := s.db.Create(deviceToken).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}

// template loads a notification template through the cache.
func (s *notificationService) template(notificationType models.NotificationType) (*models.NotificationTemplate, error) {
	key := string(notificationType)
	if cached, found := s.cache.Get(key); found {
		return cached, nil
	}

	var template models.NotificationTemplate
	if err := s.db.Where("type = ?", notificationType).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.cache.SetWithTTL(key, &template, 1, templateCacheTTL)
	return &template, nil
}

func (s *notificationService) deviceTokens(userID string) ([]string, error) {
	var tokens []string
	err := s.db.Model(&models.DeviceToken{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tokens, nil
}

// typeEnabled maps a notification type to its per-type toggle.
func typeEnabled(settings *models.NotificationSettings, notificationType models.NotificationType) bool {
	switch notificationType {
	case models.NotificationBudgetAlert, models.NotificationBudgetLimit:
		return settings.BudgetAlerts
	case models.NotificationGoalMilestone, models.NotificationGoalCompleted:
		return settings.GoalUpdates
	case models.NotificationRecurring:
		return settings.RecurringReminders
	}
	return true
}

// interpolate substitutes {{name}} placeholders.
func interpolate(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
