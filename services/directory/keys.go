package directory

/**
 * This file contains the key schema for the session directory. Every key the
 * orchestrator touches is built here, so the (entity kind, id) -> key mapping
 * lives in one place instead of ad-hoc fmt.Sprintf calls in each operation.
 */

import "fmt"

// ActiveLobbiesKey is the set of all non-empty lobby ids.
const ActiveLobbiesKey = "active_lobbies"

// SelfLobbyID returns the stable id of a user's own singleton lobby. Lobby
// ids are fixed at creation time and never renamed, even across leadership
// changes.
func SelfLobbyID(username string) string {
	return fmt.Sprintf("lobby_%s", username)
}

// LobbyKey addresses the lobby record hash.
func LobbyKey(lobbyID string) string {
	return fmt.Sprintf("lobby:%s", lobbyID)
}

// LobbyMembersKey addresses the lobby membership set.
func LobbyMembersKey(lobbyID string) string {
	return fmt.Sprintf("lobby:%s:members", lobbyID)
}

// UserLobbyKey addresses the per-user pointer to their current lobby id.
func UserLobbyKey(username string) string {
	return fmt.Sprintf("user:%s:lobby", username)
}

// GameServerKey addresses the game session record bound to a lobby.
func GameServerKey(lobbyID string) string {
	return fmt.Sprintf("game_server:%s", lobbyID)
}

// CharacterInfoKey addresses a user's transient in-match character state.
func CharacterInfoKey(username string) string {
	return fmt.Sprintf("character_info:%s", username)
}
