package redis

/*
 * 'GameServer' describes the authoritative simulation process bound to a
 * lobby during a match. Stored as JSON under "game_server:<lobby id>".
 */
type GameServer struct {
	Address string `json:"address"`
	Host    string `json:"host"`
}
