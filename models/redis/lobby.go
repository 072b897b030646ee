package redis

import (
	"fmt"
	"strconv"
)

// Lobby status values. A game session record exists for a lobby exactly
// while its status is In_Match.
const (
	LobbyStatusReady   = "Ready"
	LobbyStatusInMatch = "In_Match"
)

// LobbyLimit is the fixed member capacity of every lobby.
const LobbyLimit = 5

/*
 * 'LobbyInfo' is the canonical lobby record stored as a Redis hash under
 * "lobby:<id>". The membership set lives under a separate key.
 */
type LobbyInfo struct {
	LobbyName string `json:"lobby_name"`
	Leader    string `json:"leader"`
	LimitNum  int    `json:"limit_num"`
	Status    string `json:"status"`
}

// NewLobbyInfo returns the record for a fresh self-led lobby.
func NewLobbyInfo(leader string) LobbyInfo {
	return LobbyInfo{
		LobbyName: fmt.Sprintf("%s's lobby", leader),
		Leader:    leader,
		LimitNum:  LobbyLimit,
		Status:    LobbyStatusReady,
	}
}

// HashFields flattens the record into the hash representation used by the
// session directory.
func (l LobbyInfo) HashFields() map[string]string {
	return map[string]string{
		"lobby_name": l.LobbyName,
		"leader":     l.Leader,
		"limit_num":  strconv.Itoa(l.LimitNum),
		"status":     l.Status,
	}
}

// LobbyInfoFromHash rebuilds a record from its hash fields.
func LobbyInfoFromHash(fields map[string]string) (LobbyInfo, error) {
	limit, err := strconv.Atoi(fields["limit_num"])
	if err != nil {
		return LobbyInfo{}, fmt.Errorf("invalid limit_num field: %v", err)
	}
	return LobbyInfo{
		LobbyName: fields["lobby_name"],
		Leader:    fields["leader"],
		LimitNum:  limit,
		Status:    fields["status"],
	}, nil
}
