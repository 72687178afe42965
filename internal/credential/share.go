package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/notification"
)

const maxMintAttempts = 3

var (
	errShareInvalid       = internal.NewNotFoundError("Invalid share token or access denied", internal.ErrCodeShareTokenInvalid)
	errShareExpired       = internal.NewUnauthorizedError("Share token has expired", internal.ErrCodeShareTokenExpired)
	errShareConsumed      = internal.NewForbiddenError("This credential share has already been accessed", internal.ErrCodeShareConsumed)
	errSharedNotFound     = internal.NewNotFoundError("Shared credential not found", internal.ErrCodeCredentialNotFound)
	errNotDeptMember      = internal.NewForbiddenError("Access denied: not a member of the shared department", internal.ErrCodeNotDeptMember)
	errRequesterNotFound  = internal.NewNotFoundError("Requesting user not found", internal.ErrCodeUserNotFound)
	errRecipientNotFound  = internal.NewNotFoundError("Recipient user not found", internal.ErrCodeRecipientNotFound)
	errDepartmentNotFound = internal.NewNotFoundError("Department not found", internal.ErrCodeDepartmentNotFound)
	errDepartmentEmpty    = internal.NewNotFoundError("No users found in the specified department", internal.ErrCodeDepartmentEmpty)
)

// Share issues a token for one recipient or one department and notifies every recipient.
// A live token for the same target is re-sent instead of minting a new one; its expiry is kept.
func (s *Service) Share(ctx context.Context, companyID, actorID, credentialID string, dto ShareCredentialDTO) (*ShareResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	dm, err := s.inCompany(ctx, companyID, credentialID)
	if err != nil {
		return nil, err
	}

	sharer, err := s.directory.FindUser(ctx, actorID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load sharing user", err)
	}
	ownerName := "A colleague"
	if sharer != nil {
		ownerName = sharer.Name
	}

	if dto.Email != "" {
		return s.shareWithUser(ctx, dm, actorID, ownerName, dto.Email)
	}
	return s.shareWithDepartment(ctx, dm, actorID, ownerName, dto.DepartmentID)
}

func (s *Service) shareWithUser(ctx context.Context, dm *credentialDatamodel.Credential, actorID, ownerName, email string) (*ShareResult, error) {
	recipient, err := s.directory.FindUserByEmail(ctx, dm.CompanyID, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up recipient", err)
	}
	if recipient == nil {
		return nil, errRecipientNotFound
	}

	token, reissued, err := s.issue(ctx, dm.ID, actorID, LiveTarget{RecipientUserID: recipient.ID}, func(t *credentialDatamodel.ShareToken) {
		t.RecipientUserID = &recipient.ID
		t.RecipientEmail = &recipient.Email
	})
	if err != nil {
		return nil, err
	}

	notified := 1
	if err := s.notify(ctx, dm, token, ownerName, recipient); err != nil {
		notified = 0
		s.logger.Error("failed to send share email", "error", err, "credential_id", dm.ID, "recipient", recipient.Email)
		if s.policy.FailOnEmailNotifyError {
			s.publish(ctx, events.NewCredentialSharedEvent(dm.ID, token.ID, actorID, events.TargetEmail, 1, notified, reissued))
			return nil, internal.NewDependencyError("Failed to send sharing email", internal.ErrCodeNotificationFailed, err)
		}
	}

	s.publish(ctx, events.NewCredentialSharedEvent(dm.ID, token.ID, actorID, events.TargetEmail, 1, notified, reissued))
	s.logger.Info("credential shared", "credential_id", dm.ID, "target", events.TargetEmail, "reissued", reissued)

	return &ShareResult{
		Message:    "Credential shared successfully with 1 recipient",
		Recipients: []Recipient{{Email: recipient.Email, Name: recipient.Name}},
		ExpiresAt:  token.ExpiresAt,
		Reissued:   reissued,
	}, nil
}

// shareWithDepartment notifies the members present now; later joiners can still redeem the token.
func (s *Service) shareWithDepartment(ctx context.Context, dm *credentialDatamodel.Credential, actorID, ownerName, departmentID string) (*ShareResult, error) {
	dept, err := s.directory.FindDepartment(ctx, departmentID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up department", err)
	}
	if dept == nil || dept.CompanyID != dm.CompanyID {
		return nil, errDepartmentNotFound
	}

	members, err := s.directory.DepartmentMembers(ctx, dept.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load department members", err)
	}
	if len(members) == 0 {
		return nil, errDepartmentEmpty
	}

	token, reissued, err := s.issue(ctx, dm.ID, actorID, LiveTarget{DepartmentID: dept.ID}, func(t *credentialDatamodel.ShareToken) {
		t.DepartmentID = &dept.ID
	})
	if err != nil {
		return nil, err
	}

	recipients := make([]Recipient, 0, len(members))
	links := make([]notification.ShareLink, 0, len(members))
	for _, member := range members {
		recipients = append(recipients, Recipient{Email: member.Email, Name: member.Name})
		links = append(links, shareLink(dm, token, ownerName, member))
	}

	notified := 0
	var firstErr error
	for i, err := range s.sendAll(ctx, links) {
		if err != nil {
			s.logger.Error("failed to send department share email", "error", err, "credential_id", dm.ID, "recipient", links[i].RecipientEmail)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		notified++
	}
	if firstErr != nil && s.policy.FailOnDepartmentNotifyError {
		s.publish(ctx, events.NewCredentialSharedEvent(dm.ID, token.ID, actorID, events.TargetDepartment, len(members), notified, reissued))
		return nil, internal.NewDependencyError("Failed to send sharing email", internal.ErrCodeNotificationFailed, firstErr)
	}

	s.publish(ctx, events.NewCredentialSharedEvent(dm.ID, token.ID, actorID, events.TargetDepartment, len(members), notified, reissued))
	s.logger.Info("credential shared",
		"credential_id", dm.ID,
		"target", events.TargetDepartment,
		"department_id", dept.ID,
		"recipients", len(members),
		"notified", notified,
		"reissued", reissued)

	return &ShareResult{
		Message:    fmt.Sprintf("Credential shared successfully with %d recipient(s) via department", len(members)),
		Recipients: recipients,
		ExpiresAt:  token.ExpiresAt,
		Reissued:   reissued,
	}, nil
}

// issue reuses the target's live token or mints a new one, retrying on a token collision.
func (s *Service) issue(ctx context.Context, credentialID, actorID string, target LiveTarget, bind func(*credentialDatamodel.ShareToken)) (*credentialDatamodel.ShareToken, bool, error) {
	now := s.now()
	live, err := s.shares.FindLive(ctx, credentialID, target, now)
	if err != nil {
		return nil, false, internal.NewInternalError("failed to look up live share", err)
	}
	if live != nil {
		return live, true, nil
	}

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		value, err := auth.GenerateRandomToken()
		if err != nil {
			return nil, false, internal.NewInternalError("failed to generate share token", err)
		}
		t := &credentialDatamodel.ShareToken{
			ID:           ids.New(),
			CredentialID: credentialID,
			Token:        value,
			OwnerID:      actorID,
			ExpiresAt:    now.Add(s.policy.TokenTTL),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		bind(t)

		err = s.shares.Create(ctx, t)
		if err == nil {
			return t, false, nil
		}
		if !errors.Is(err, ErrDuplicateToken) {
			s.logger.Error("failed to store share token", "error", err, "credential_id", credentialID)
			return nil, false, internal.NewInternalError("failed to share credential", err)
		}
		s.logger.Warn("share token collision, retrying", "credential_id", credentialID, "attempt", attempt+1)
	}
	return nil, false, internal.NewInternalError("failed to share credential", ErrDuplicateToken)
}

func (s *Service) notify(ctx context.Context, dm *credentialDatamodel.Credential, token *credentialDatamodel.ShareToken, ownerName string, to *userDatamodel.User) error {
	return s.mailer.SendShareLink(ctx, shareLink(dm, token, ownerName, to))
}

// sendAll delivers every link even when some fail. errs[i] belongs to links[i].
func (s *Service) sendAll(ctx context.Context, links []notification.ShareLink) []error {
	if batch, ok := s.mailer.(BatchShareMailer); ok {
		return batch.SendShareLinks(ctx, links)
	}
	errs := make([]error, len(links))
	for i, link := range links {
		errs[i] = s.mailer.SendShareLink(ctx, link)
	}
	return errs
}

func shareLink(dm *credentialDatamodel.Credential, token *credentialDatamodel.ShareToken, ownerName string, to *userDatamodel.User) notification.ShareLink {
	return notification.ShareLink{
		RecipientEmail: to.Email,
		RecipientName:  to.Name,
		OwnerName:      ownerName,
		CredentialName: dm.Name,
		Token:          token.Token,
		ExpiresAt:      token.ExpiresAt,
	}
}

// AccessShared redeems a share token. Unknown tokens and tokens addressed to someone else get the
// same answer so a caller cannot probe which tokens exist.
func (s *Service) AccessShared(ctx context.Context, requesterID, value string) (*Credential, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errShareInvalid
	}

	token, err := s.shares.FindByToken(ctx, value)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up share token", err)
	}
	if token == nil {
		return nil, errShareInvalid
	}

	now := s.now()
	if now.After(token.ExpiresAt) {
		return nil, errShareExpired
	}

	dm, err := s.repo.FindByID(ctx, token.CredentialID)
	if err != nil {
		return nil, internal.NewInternalError("failed to fetch shared credential", err)
	}
	if dm == nil {
		return nil, errSharedNotFound
	}

	if token.DepartmentID != nil {
		requester, err := s.directory.FindUser(ctx, requesterID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load requesting user", err)
		}
		if requester == nil {
			return nil, errRequesterNotFound
		}
		if requester.DepartmentID == nil || *requester.DepartmentID != *token.DepartmentID {
			return nil, errNotDeptMember
		}
	} else {
		if token.RecipientUserID == nil || *token.RecipientUserID != requesterID {
			return nil, errShareInvalid
		}
		if token.Accessed {
			return nil, errShareConsumed
		}
	}

	// Open before consuming so a sealing failure never burns a single-use token.
	revealed, err := s.reveal(ctx, dm)
	if err != nil {
		return nil, err
	}

	if token.DepartmentID != nil {
		outcome, err := s.shares.RecordDepartmentAccess(ctx, token.ID, requesterID, *token.DepartmentID, now)
		if err != nil {
			s.logger.Error("failed to record department access", "error", err, "share_token_id", token.ID)
			return nil, internal.NewInternalError("failed to access shared credential", err)
		}
		s.publish(ctx, events.NewShareRedeemedEvent(token.ID, dm.ID, requesterID, events.TargetDepartment, outcome.Accessed, outcome.Members))
		if outcome.JustConsumed {
			s.publish(ctx, events.NewShareConsumedEvent(token.ID, dm.ID, events.TargetDepartment))
		}
		return revealed, nil
	}

	ok, err := s.shares.MarkAccessed(ctx, token.ID, now)
	if err != nil {
		s.logger.Error("failed to consume share token", "error", err, "share_token_id", token.ID)
		return nil, internal.NewInternalError("failed to access shared credential", err)
	}
	if !ok {
		return nil, errShareConsumed
	}
	s.publish(ctx, events.NewShareRedeemedEvent(token.ID, dm.ID, requesterID, events.TargetEmail, 1, 1))
	s.publish(ctx, events.NewShareConsumedEvent(token.ID, dm.ID, events.TargetEmail))
	return revealed, nil
}

// ListShares is the owner's share history for one credential, token values omitted.
func (s *Service) ListShares(ctx context.Context, requesterID, credentialID string) ([]ShareRecord, error) {
	dm, err := s.owned(ctx, requesterID, credentialID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.shares.ListByCredential(ctx, dm.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list shares", err)
	}
	now := s.now()
	out := make([]ShareRecord, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ShareRecordFromDataModel(t, now))
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
