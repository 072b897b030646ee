package lobby

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	redismodels "brawlhub/models/redis"
	"brawlhub/services/directory"
	"brawlhub/services/events"
)

// Snapshot is a lobby record together with its id and roster, the shape
// returned to clients and carried inside lobby events.
type Snapshot struct {
	LobbyID string `json:"lobby_id"`
	redismodels.LobbyInfo
	Members []string `json:"members"`
}

// Service is the lobby state machine. All cross-request coordination goes
// through the session directory; resulting notifications go out on the bus.
type Service struct {
	store directory.Store
	bus   events.Publisher
}

func NewService(store directory.Store, bus events.Publisher) *Service {
	return &Service{store: store, bus: bus}
}

// CreateSelfLobby ensures the user owns a singleton lobby (self-led, Ready)
// and returns it. Calling it while already in a lobby is a no-op that returns
// the current one.
func (s *Service) CreateSelfLobby(ctx context.Context, username string) (Snapshot, error) {
	if id, err := s.store.Get(ctx, directory.UserLobbyKey(username)); err == nil {
		if snap, err := s.Snapshot(ctx, id); err == nil {
			return snap, nil
		}
		// Stale pointer without a record behind it; rebuild below.
	} else if !errors.Is(err, directory.ErrNotFound) {
		return Snapshot{}, err
	}

	id := directory.SelfLobbyID(username)
	info := redismodels.NewLobbyInfo(username)
	batch := directory.NewBatch().
		HashSet(directory.LobbyKey(id), info.HashFields()).
		Set(directory.UserLobbyKey(username), id).
		SetAdd(directory.ActiveLobbiesKey, id).
		SetAdd(directory.LobbyMembersKey(id), username)
	if err := s.store.Apply(ctx, batch); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{LobbyID: id, LobbyInfo: info, Members: []string{username}}, nil
}

// Invite notifies the receiver of an invitation into the sender's current
// lobby. Invitations are ephemeral; the only effect is the event.
func (s *Service) Invite(ctx context.Context, sender, receiver string) error {
	id, err := s.currentLobbyID(ctx, sender)
	if err != nil {
		return err
	}
	members, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(id))
	if err != nil {
		return err
	}
	if contains(members, receiver) {
		return ErrAlreadyMember
	}
	s.publish(ctx, receiver, events.Event{
		Resource: events.ResourceLobbyInvitation,
		Action:   events.ActionReceive,
		Payload:  map[string]string{"sender": sender, "receiver": receiver},
	})
	return nil
}

// AcceptInvite moves the receiver into the sender's current lobby. The
// receiver is forced out of any prior lobby first (possibly dissolving a
// singleton), then membership and pointer are updated in one atomic batch.
func (s *Service) AcceptInvite(ctx context.Context, receiver, sender string) (Snapshot, error) {
	targetID, err := s.currentLobbyID(ctx, sender)
	if err != nil {
		return Snapshot{}, err
	}
	info, err := s.lobbyInfo(ctx, targetID)
	if err != nil {
		return Snapshot{}, err
	}
	if info.Status != redismodels.LobbyStatusReady {
		return Snapshot{}, ErrLobbyBusy
	}
	members, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(targetID))
	if err != nil {
		return Snapshot{}, err
	}
	if contains(members, receiver) {
		return Snapshot{}, ErrAlreadyMember
	}
	if len(members) >= info.LimitNum {
		return Snapshot{}, ErrLobbyFull
	}

	if err := s.LeaveProcess(ctx, receiver); err != nil {
		return Snapshot{}, err
	}
	// The membership write is guarded by the capacity check so concurrent
	// accepts into an almost-full lobby cannot push it over the limit.
	batch := directory.NewBatch().
		Set(directory.UserLobbyKey(receiver), targetID).
		SetAdd(directory.LobbyMembersKey(targetID), receiver)
	applied, err := s.store.ApplyIfBelow(ctx, directory.LobbyMembersKey(targetID), info.LimitNum, batch)
	if err != nil {
		return Snapshot{}, err
	}
	if !applied {
		// Lost the race for the last slot; the receiver already left their
		// old lobby, so give them their singleton back.
		if _, err := s.CreateSelfLobby(ctx, receiver); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{}, ErrLobbyFull
	}

	for _, member := range members {
		s.publish(ctx, member, events.Event{
			Resource: events.ResourceLobbyInvitation,
			Action:   events.ActionAccept,
			Payload:  map[string]string{"sender": sender, "receiver": receiver},
		})
	}

	roster := append(members, receiver)
	sort.Strings(roster)
	return Snapshot{LobbyID: targetID, LobbyInfo: info, Members: roster}, nil
}

// DeclineInvite notifies the sender. No state is touched.
func (s *Service) DeclineInvite(ctx context.Context, receiver, sender string) error {
	s.publish(ctx, sender, events.Event{
		Resource: events.ResourceLobbyInvitation,
		Action:   events.ActionDecline,
		Payload:  map[string]string{"sender": sender, "receiver": receiver},
	})
	return nil
}

// Leave removes the user from their current lobby and re-bootstraps their own
// singleton, which is returned. Online users always keep exactly one lobby.
func (s *Service) Leave(ctx context.Context, username string) (Snapshot, error) {
	if err := s.LeaveProcess(ctx, username); err != nil {
		return Snapshot{}, err
	}
	return s.CreateSelfLobby(ctx, username)
}

// Kick relocates a member into a fresh singleton lobby of their own. Only the
// leader may kick; the whole relocation is one atomic batch.
func (s *Service) Kick(ctx context.Context, leader, target string) error {
	id, err := s.currentLobbyID(ctx, leader)
	if err != nil {
		return err
	}
	info, err := s.lobbyInfo(ctx, id)
	if err != nil {
		return err
	}
	if info.Leader != leader {
		return ErrNotLeader
	}
	if target == leader {
		return ErrSelfTarget
	}
	members, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(id))
	if err != nil {
		return err
	}
	if !contains(members, target) {
		return ErrNotMember
	}

	selfID := directory.SelfLobbyID(target)
	selfInfo := redismodels.NewLobbyInfo(target)
	batch := directory.NewBatch().
		SetRemove(directory.LobbyMembersKey(id), target).
		HashSet(directory.LobbyKey(selfID), selfInfo.HashFields()).
		Set(directory.UserLobbyKey(target), selfID).
		SetAdd(directory.ActiveLobbiesKey, selfID).
		SetAdd(directory.LobbyMembersKey(selfID), target)
	if err := s.store.Apply(ctx, batch); err != nil {
		return err
	}

	s.publish(ctx, target, events.Event{
		Resource: events.ResourceLobby,
		Action:   events.ActionIsKick,
		Payload: map[string]interface{}{
			"lobby": Snapshot{LobbyID: selfID, LobbyInfo: selfInfo, Members: []string{target}},
		},
	})

	remaining := remove(members, target)
	sort.Strings(remaining)
	snap := Snapshot{LobbyID: id, LobbyInfo: info, Members: remaining}
	for _, member := range remaining {
		if member == leader {
			continue
		}
		s.publish(ctx, member, events.Event{
			Resource: events.ResourceLobby,
			Action:   events.ActionKickMember,
			Payload:  map[string]interface{}{"left_user": target, "lobby": snap},
		})
	}
	return nil
}

// MakeLeader reassigns leadership to another member. The lobby id stays
// stable; only the leader and display name fields are rewritten, so pointers
// and any game session binding are untouched.
func (s *Service) MakeLeader(ctx context.Context, leader, target string) (Snapshot, error) {
	id, err := s.currentLobbyID(ctx, leader)
	if err != nil {
		return Snapshot{}, err
	}
	info, err := s.lobbyInfo(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if info.Leader != leader {
		return Snapshot{}, ErrNotLeader
	}
	if target == leader {
		return Snapshot{}, ErrSelfTarget
	}
	members, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(id))
	if err != nil {
		return Snapshot{}, err
	}
	if !contains(members, target) {
		return Snapshot{}, ErrNotMember
	}

	info.Leader = target
	info.LobbyName = fmt.Sprintf("%s's lobby", target)
	batch := directory.NewBatch().HashSet(directory.LobbyKey(id), map[string]string{
		"leader":     info.Leader,
		"lobby_name": info.LobbyName,
	})
	if err := s.store.Apply(ctx, batch); err != nil {
		return Snapshot{}, err
	}

	sort.Strings(members)
	snap := Snapshot{LobbyID: id, LobbyInfo: info, Members: members}
	for _, member := range members {
		if member == leader {
			continue
		}
		s.publish(ctx, member, events.Event{
			Resource: events.ResourceLobby,
			Action:   events.ActionMakeLeader,
			Payload:  map[string]interface{}{"lobby": snap},
		})
	}
	return snap, nil
}

// LeaveProcess is the shared departure subroutine, also used by logout and
// socket-close cleanup. It removes the user from their lobby and clears their
// pointer; an emptied lobby is dissolved silently, otherwise the remaining
// members are notified and, if needed, a new leader is elected
// deterministically (smallest username).
func (s *Service) LeaveProcess(ctx context.Context, username string) error {
	id, err := s.store.Get(ctx, directory.UserLobbyKey(username))
	if errors.Is(err, directory.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	batch := directory.NewBatch().
		SetRemove(directory.LobbyMembersKey(id), username).
		Delete(directory.UserLobbyKey(username))
	if err := s.store.Apply(ctx, batch); err != nil {
		return err
	}

	remaining, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(id))
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		// Last member out: dissolve the lobby and anything bound to it.
		batch := directory.NewBatch().
			Delete(directory.LobbyKey(id), directory.LobbyMembersKey(id), directory.GameServerKey(id)).
			SetRemove(directory.ActiveLobbiesKey, id)
		return s.store.Apply(ctx, batch)
	}

	info, err := s.lobbyInfo(ctx, id)
	if err != nil {
		return err
	}
	sort.Strings(remaining)
	if info.Leader == username {
		info.Leader = remaining[0]
		info.LobbyName = fmt.Sprintf("%s's lobby", info.Leader)
		batch := directory.NewBatch().HashSet(directory.LobbyKey(id), map[string]string{
			"leader":     info.Leader,
			"lobby_name": info.LobbyName,
		})
		if err := s.store.Apply(ctx, batch); err != nil {
			return err
		}
	}

	snap := Snapshot{LobbyID: id, LobbyInfo: info, Members: remaining}
	for _, member := range remaining {
		s.publish(ctx, member, events.Event{
			Resource: events.ResourceLobby,
			Action:   events.ActionLeave,
			Payload:  map[string]interface{}{"left_user": username, "lobby": snap},
		})
	}
	return nil
}

// Snapshot loads a lobby record and roster by id.
func (s *Service) Snapshot(ctx context.Context, lobbyID string) (Snapshot, error) {
	info, err := s.lobbyInfo(ctx, lobbyID)
	if err != nil {
		return Snapshot{}, err
	}
	members, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(lobbyID))
	if err != nil {
		return Snapshot{}, err
	}
	sort.Strings(members)
	return Snapshot{LobbyID: lobbyID, LobbyInfo: info, Members: members}, nil
}

// Current resolves the caller's lobby.
func (s *Service) Current(ctx context.Context, username string) (Snapshot, error) {
	id, err := s.currentLobbyID(ctx, username)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(ctx, id)
}

func (s *Service) currentLobbyID(ctx context.Context, username string) (string, error) {
	id, err := s.store.Get(ctx, directory.UserLobbyKey(username))
	if errors.Is(err, directory.ErrNotFound) {
		return "", ErrNoLobby
	}
	return id, err
}

func (s *Service) lobbyInfo(ctx context.Context, lobbyID string) (redismodels.LobbyInfo, error) {
	fields, err := s.store.HashGetAll(ctx, directory.LobbyKey(lobbyID))
	if errors.Is(err, directory.ErrNotFound) {
		return redismodels.LobbyInfo{}, ErrNoLobby
	}
	if err != nil {
		return redismodels.LobbyInfo{}, err
	}
	return redismodels.LobbyInfoFromHash(fields)
}

// publish fans an event out on the bus. Delivery is best-effort; failures are
// logged and never surfaced to the caller of the state machine.
func (s *Service) publish(ctx context.Context, username string, event events.Event) {
	if err := s.bus.Publish(ctx, username, event); err != nil {
		log.Printf("lobby: error publishing %s/%s to %s: %v",
			event.Resource, event.Action, username, err)
	}
}

func contains(members []string, username string) bool {
	for _, m := range members {
		if m == username {
			return true
		}
	}
	return false
}

func remove(members []string, username string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m != username {
			out = append(out, m)
		}
	}
	return out
}
