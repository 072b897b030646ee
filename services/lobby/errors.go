package lobby

import "errors"

// Sentinel errors surfaced by the state machine. Controllers map these onto
// HTTP status codes; anything else is an infrastructure failure.
var (
	ErrNoLobby       = errors.New("lobby: user has no current lobby")
	ErrAlreadyMember = errors.New("lobby: user is already a member")
	ErrLobbyBusy     = errors.New("lobby: lobby is not ready")
	ErrLobbyFull     = errors.New("lobby: lobby is at capacity")
	ErrNotLeader     = errors.New("lobby: caller is not the lobby leader")
	ErrNotMember     = errors.New("lobby: target is not a lobby member")
	ErrSelfTarget    = errors.New("lobby: operation cannot target the caller")
)
