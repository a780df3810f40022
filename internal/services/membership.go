package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/lib/pq"

	"chat-server/internal/models"
	"chat-server/internal/repositories"
	"chat-server/internal/storage"
)

// MembershipService owns conversation lifecycle: one-to-one creation,
// group creation, membership changes and the admin role rules.
type MembershipService struct {
	convs repositories.ConversationRepository
	users repositories.UserRepository
	msgs  repositories.MessageRepository
	blobs storage.BlobStore
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(convs repositories.ConversationRepository, users repositories.UserRepository,
	msgs repositories.MessageRepository, blobs storage.BlobStore) *MembershipService {
	return &MembershipService{convs: convs, users: users, msgs: msgs, blobs: blobs}
}

// Get returns a conversation the user participates in.
func (s *MembershipService) Get(ctx context.Context, userID, convID int64) (models.Conversation, error) {
	conv, err := s.convs.Get(ctx, convID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, fmt.Errorf("%w: conversation %d", ErrNotFound, convID)
	}
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.HasParticipant(userID) {
		return models.Conversation{}, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return conv, nil
}

// ListSummaries returns the user's conversations newest-activity-first,
// each with its unread count and last message.
func (s *MembershipService) ListSummaries(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := models.ConversationSummary{Conversation: conv}
		unread, err := s.msgs.CountUnread(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread
		if conv.LastMessageID != nil {
			last, err := s.msgs.Get(ctx, *conv.LastMessageID)
			if err == nil {
				summary.LastMessage = &last
			} else if !errors.Is(err, repositories.ErrMessageNotFound) {
				return nil, err
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetOrCreateOneToOne returns the direct conversation between the two
// users, creating it on first contact. created reports whether a new
// conversation was made.
func (s *MembershipService) GetOrCreateOneToOne(ctx context.Context, userID, otherID int64) (models.Conversation, bool, error) {
	if otherID == 0 || otherID == userID {
		return models.Conversation{}, false, fmt.Errorf("%w: invalid counterpart", ErrValidation)
	}
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Conversation{}, false, fmt.Errorf("%w: user %d", ErrNotFound, otherID)
		}
		return models.Conversation{}, false, err
	}
	conv, err := s.convs.FindOneToOne(ctx, userID, otherID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, false, err
	}
	pair := []int64{userID, otherID}
	sort.Slice(pair, func(i, j int) bool { return pair[i] < pair[j] })
	created, err := s.convs.Create(ctx, models.Conversation{
		Participants: pq.Int64Array(pair),
		IsGroupChat:  false,
	})
	if err != nil {
		return models.Conversation{}, false, err
	}
	return created, true, nil
}

// CreateGroup creates a group chat with the creator as sole admin.
func (s *MembershipService) CreateGroup(ctx context.Context, creatorID int64, name string, memberIDs []int64) (models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Conversation{}, fmt.Errorf("%w: group name required", ErrValidation)
	}
	// A creator-only group is allowed; the minimum applies only when
	// other members were actually requested.
	participants := dedupe(append([]int64{creatorID}, memberIDs...))
	if len(memberIDs) > 0 && len(participants) < 2 {
		return models.Conversation{}, fmt.Errorf("%w: a group needs at least two members", ErrValidation)
	}
	missing, err := s.users.MissingIDs(ctx, participants)
	if err != nil {
		return models.Conversation{}, err
	}
	if len(missing) > 0 {
		return models.Conversation{}, fmt.Errorf("%w: unknown users %v", ErrNotFound, missing)
	}
	return s.convs.Create(ctx, models.Conversation{
		Participants: pq.Int64Array(participants),
		IsGroupChat:  true,
		GroupName:    name,
		Admins:       pq.Int64Array{creatorID},
	})
}

// RenameGroup changes a group's display name. Admin only.
func (s *MembershipService) RenameGroup(ctx context.Context, actorID, convID int64, name string) (models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Conversation{}, fmt.Errorf("%w: group name required", ErrValidation)
	}
	conv, err := s.adminConversation(ctx, actorID, convID)
	if err != nil {
		return models.Conversation{}, err
	}
	conv.GroupName = name
	if err := s.convs.Save(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// SetGroupPicture swaps the group picture, removing the previous blob
// best-effort.
func (s *MembershipService) SetGroupPicture(ctx context.Context, actorID, convID int64, url string) (models.Conversation, error) {
	conv, err := s.adminConversation(ctx, actorID, convID)
	if err != nil {
		return models.Conversation{}, err
	}
	previous := conv.GroupPictureURL
	conv.GroupPictureURL = url
	if err := s.convs.Save(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	if previous != "" && previous != url && s.blobs != nil {
		if err := s.blobs.Remove(ctx, previous); err != nil {
			log.Printf("remove old group picture: %v", err)
		}
	}
	return conv, nil
}

// AddMember adds a user to a group and announces it with a system
// message. Admin only.
func (s *MembershipService) AddMember(ctx context.Context, actorID, convID, memberID int64) (models.Conversation, []Effect, error) {
	conv, err := s.adminConversation(ctx, actorID, convID)
	if err != nil {
		return models.Conversation{}, nil, err
	}
	if conv.HasParticipant(memberID) {
		return models.Conversation{}, nil, fmt.Errorf("%w: user already in group", ErrConflict)
	}
	member, err := s.users.GetByID(ctx, memberID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.Conversation{}, nil, fmt.Errorf("%w: user %d", ErrNotFound, memberID)
	}
	if err != nil {
		return models.Conversation{}, nil, err
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return models.Conversation{}, nil, err
	}
	conv.Participants = append(conv.Participants, memberID)
	if err := s.convs.Save(ctx, conv); err != nil {
		return models.Conversation{}, nil, err
	}
	effects, err := s.systemMessage(ctx, conv.ID, fmt.Sprintf("%s added %s", actor.FullName, member.FullName))
	if err != nil {
		return models.Conversation{}, nil, err
	}
	return conv, effects, nil
}

// RemoveMember removes a non-admin member from a group. Removing an
// admin is refused; they must be demoted first. deleted reports whether
// the group ended up empty and was removed.
func (s *MembershipService) RemoveMember(ctx context.Context, actorID, convID, memberID int64) (models.Conversation, bool, []Effect, error) {
	conv, err := s.adminConversation(ctx, actorID, convID)
	if err != nil {
		return models.Conversation{}, false, nil, err
	}
	if !conv.HasParticipant(memberID) {
		return models.Conversation{}, false, nil, fmt.Errorf("%w: user not in group", ErrNotFound)
	}
	if conv.HasAdmin(memberID) {
		return models.Conversation{}, false, nil, fmt.Errorf("%w: demote the admin before removing them", ErrConflict)
	}
	// A hard-deleted user can still be listed as a participant; fall
	// back to the id for the announcement.
	memberName := fmt.Sprintf("user %d", memberID)
	member, err := s.users.GetByID(ctx, memberID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return models.Conversation{}, false, nil, err
	}
	if err == nil {
		memberName = member.FullName
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return models.Conversation{}, false, nil, err
	}
	conv.Participants = remove(conv.Participants, memberID)
	if len(conv.Participants) == 0 {
		if err := s.convs.Delete(ctx, conv.ID); err != nil {
			return models.Conversation{}, false, nil, err
		}
		return conv, true, nil, nil
	}
	if err := s.convs.Save(ctx, conv); err != nil {
		return models.Conversation{}, false, nil, err
	}
	effects, err := s.systemMessage(ctx, conv.ID, fmt.Sprintf("%s removed %s", actor.FullName, memberName))
	if err != nil {
		return models.Conversation{}, false, nil, err
	}
	return conv, false, effects, nil
}

// Leave removes the caller from a group. The last member leaving
// deletes the conversation; when the last admin leaves a non-empty
// group the longest-standing remaining member is promoted so the group
// never ends up adminless.
func (s *MembershipService) Leave(ctx context.Context, userID, convID int64) (bool, []Effect, error) {
	conv, err := s.convs.Get(ctx, convID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return false, nil, fmt.Errorf("%w: conversation %d", ErrNotFound, convID)
	}
	if err != nil {
		return false, nil, err
	}
	if !conv.IsGroupChat {
		return false, nil, fmt.Errorf("%w: cannot leave a direct conversation", ErrValidation)
	}
	if !conv.HasParticipant(userID) {
		return false, nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	conv.Participants = remove(conv.Participants, userID)
	conv.Admins = remove(conv.Admins, userID)
	if len(conv.Participants) == 0 {
		if err := s.convs.Delete(ctx, conv.ID); err != nil {
			return false, nil, err
		}
		return true, nil, nil
	}
	if len(conv.Admins) == 0 {
		conv.Admins = pq.Int64Array{conv.Participants[0]}
	}
	if err := s.convs.Save(ctx, conv); err != nil {
		return false, nil, err
	}
	effects, err := s.systemMessage(ctx, conv.ID, fmt.Sprintf("%s left", user.FullName))
	if err != nil {
		return false, nil, err
	}
	return false, effects, nil
}

// Promote grants admin to a group member. Admin only, idempotent-safe
// via conflict on repeats.
func (s *MembershipService) Promote(ctx context.Context, actorID, convID, userID int64) (models.Conversation, error) {
	conv, err := s.adminConversation(ctx, actorID, convID)
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.HasParticipant(userID) {
		return models.Conversation{}, fmt.Errorf("%w: user not in group", ErrNotFound)
	}
	if conv.HasAdmin(userID) {
		return models.Conversation{}, fmt.Errorf("%w: user is already an admin", ErrConflict)
	}
	conv.Admins = append(conv.Admins, userID)
	if err := s.convs.Save(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// Demote revokes admin from a group member. The last admin cannot
// demote themselves; they must promote a replacement or leave.
func (s *MembershipService) Demote(ctx context.Context, actorID, convID, userID int64) (models.Conversation, error) {
	conv, err := s.adminConversation(ctx, actorID, convID)
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.HasAdmin(userID) {
		return models.Conversation{}, fmt.Errorf("%w: user is not an admin", ErrNotFound)
	}
	if len(conv.Admins) == 1 && userID == actorID {
		return models.Conversation{}, fmt.Errorf("%w: a group cannot be left without an admin", ErrConflict)
	}
	conv.Admins = remove(conv.Admins, userID)
	if err := s.convs.Save(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// adminConversation loads a group conversation and checks the actor is
// one of its admins.
func (s *MembershipService) adminConversation(ctx context.Context, actorID, convID int64) (models.Conversation, error) {
	conv, err := s.convs.Get(ctx, convID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, fmt.Errorf("%w: conversation %d", ErrNotFound, convID)
	}
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.IsGroupChat {
		return models.Conversation{}, fmt.Errorf("%w: not a group conversation", ErrValidation)
	}
	if !conv.HasAdmin(actorID) {
		return models.Conversation{}, fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	return conv, nil
}

// systemMessage persists an announcement message, bumps the
// conversation's last message and returns the broadcast effect.
func (s *MembershipService) systemMessage(ctx context.Context, convID int64, content string) ([]Effect, error) {
	msg, err := s.msgs.Create(ctx, models.Message{
		ConversationID: convID,
		Content:        content,
		MessageType:    models.MessageTypeSystem,
		Status:         models.StatusSent,
	})
	if err != nil {
		return nil, err
	}
	if err := s.convs.SetLastMessage(ctx, convID, msg.ID); err != nil {
		return nil, err
	}
	return []Effect{broadcast(convID, models.Event{Type: models.EventNewMessage, Message: &msg})}, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func remove(ids pq.Int64Array, target int64) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
