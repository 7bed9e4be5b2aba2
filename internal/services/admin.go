package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// canActOnGroup is the single authorization check for admin chat commands:
// the actor must hold requiredRole and belong to targetGroupID.
func canActOnGroup(user *models.User, targetGroupID, requiredRole string) error {
	if user == nil || user.Role != requiredRole {
		return models.NewPermissionError(msgNoPermission)
	}
	if targetGroupID == "" || user.GroupID != targetGroupID {
		return models.NewPermissionError(msgWrongGroup)
	}
	return nil
}

// AdminService handles roster, registration link and session commands.
// Each method authorizes, performs one mutation and returns the reply text.
type AdminService struct {
	store       storage.Store
	sessions    *SessionRegistry
	now         Clock
	tokenTTL    time.Duration
	frontendURL string
	location    *time.Location
	log         *logrus.Logger
}

// AdminConfig carries the settings AdminService needs
type AdminConfig struct {
	TokenTTL    time.Duration
	FrontendURL string
	Location    *time.Location
}

// NewAdminService creates the admin command handlers
func NewAdminService(store storage.Store, sessions *SessionRegistry, now Clock, cfg AdminConfig, log *logrus.Logger) *AdminService {
	if now == nil {
		now = time.Now
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AdminService{
		store:       store,
		sessions:    sessions,
		now:         now,
		tokenTTL:    cfg.TokenTTL,
		frontendURL: cfg.FrontendURL,
		location:    cfg.Location,
		log:         log,
	}
}

// lookupAdmin resolves the sender; unknown senders get a permission error
func (a *AdminService) lookupAdmin(ctx context.Context, phone string) (*models.User, error) {
	user, err := a.store.GetUserByPhone(ctx, phone)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.NewPermissionError(msgNoPermission)
	}
	return user, err
}

// CreateRegistrationLink issues a fresh registration token for the group chat
func (a *AdminService) CreateRegistrationLink(ctx context.Context, msg *models.InboundMessage) (string, error) {
	if !msg.IsGroup {
		return "", models.NewUsageError(msgGroupOnly)
	}
	groupID := msg.ConversationID
	phone := msg.SenderPhone()

	admin, err := a.store.GetUserByPhone(ctx, phone)
	if errors.Is(err, models.ErrUserNotFound) {
		return "", models.NewNotFoundError(msgNotInSystem)
	}
	if err != nil {
		return "", err
	}
	if admin.Role != models.RoleAdminGroup {
		return "", models.NewPermissionError(msgNoPermission)
	}

	// First link from a fresh admin binds them to this group
	if !admin.HasGroup() {
		if err := a.store.SetUserGroup(ctx, phone, groupID); err != nil {
			return "", err
		}
		admin.GroupID = groupID
		a.log.WithFields(logrus.Fields{"admin": phone, "group": groupID}).Info("Admin bound to group")
	}
	if err := canActOnGroup(admin, groupID, models.RoleAdminGroup); err != nil {
		return "", err
	}

	token := utils.GenerateGroupToken(groupID)
	expiresAt := a.now().Add(a.tokenTTL)
	if err := a.store.UpsertGroupToken(ctx, groupID, token, expiresAt); err != nil {
		return "", err
	}

	link := a.frontendURL + "register?token=" + url.QueryEscape(token)
	a.log.WithFields(logrus.Fields{"group": groupID, "expires_at": expiresAt.Format(time.RFC3339)}).Info("Registration link created")
	return msgLinkCreated(link, expiresAt.In(a.location).Format("02 Jan 2006 15:04 MST")), nil
}

// SetRespondents adds (value=true) or removes every mentioned number as a
// respondent of the admin's group
func (a *AdminService) SetRespondents(ctx context.Context, msg *models.InboundMessage, value bool) (string, error) {
	if !msg.IsGroup {
		return "", models.NewUsageError(msgGroupOnly)
	}

	admin, err := a.lookupAdmin(ctx, msg.SenderPhone())
	if err != nil {
		return "", err
	}
	if err := canActOnGroup(admin, msg.ConversationID, models.RoleAdminGroup); err != nil {
		return "", err
	}

	mentioned := msg.MentionedPhones()
	if len(mentioned) == 0 {
		if value {
			return "", models.NewUsageError(msgUsageSetRole)
		}
		return "", models.NewUsageError(msgUsageRemoveRole)
	}

	var unknown []string
	for _, phone := range mentioned {
		err := a.store.SetNarasumberFlag(ctx, phone, admin.GroupID, value)
		if errors.Is(err, models.ErrUserNotFound) {
			unknown = append(unknown, phone)
			continue
		}
		if err != nil {
			return "", err
		}
		a.log.WithFields(logrus.Fields{"respondent": phone, "group": admin.GroupID, "value": value}).Info("Respondent flag updated")
	}

	text := msgRespondentsGone
	if value {
		text = msgRespondentsSet
	}
	if len(unknown) == len(mentioned) {
		return "", models.NewNotFoundError(msgUnknownNumbers(unknown))
	}
	if len(unknown) > 0 {
		text += "\n\n" + msgUnknownNumbers(unknown)
	}
	return text, nil
}

// SetSession toggles the Q&A window: args are the words after !setSession
func (a *AdminService) SetSession(ctx context.Context, msg *models.InboundMessage, args []string) (string, error) {
	if !msg.IsGroup {
		return "", models.NewUsageError(msgGroupOnly)
	}

	admin, err := a.lookupAdmin(ctx, msg.SenderPhone())
	if err != nil {
		return "", err
	}
	if err := canActOnGroup(admin, msg.ConversationID, models.RoleAdminGroup); err != nil {
		return "", err
	}

	if len(args) == 0 {
		return "", models.NewUsageError(msgUsageSession)
	}

	switch args[0] {
	case "aktif":
		minutes := a.sessions.DefaultMinutes()
		if len(args) > 2 {
			return "", models.NewUsageError(msgUsageSession)
		}
		if len(args) == 2 {
			minutes, err = strconv.Atoi(args[1])
			if err != nil || minutes <= 0 {
				return "", models.NewUsageError(msgUsageSession)
			}
		}
		a.sessions.SetSession(msg.ConversationID, true, minutes)
		return msgSessionEnabled(minutes), nil

	case "nonaktif":
		if len(args) != 1 {
			return "", models.NewUsageError(msgUsageSession)
		}
		a.sessions.SetSession(msg.ConversationID, false, 0)
		return msgSessionDisabled, nil

	default:
		return "", models.NewUsageError(msgUsageSession)
	}
}
