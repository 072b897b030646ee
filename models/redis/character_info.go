package redis

/*
 * 'CharacterInfo' is the transient in-match state a client checkpoints for
 * its character. Stored as JSON under "character_info:<username>" and wiped
 * whenever a game session starts or ends.
 */
type CharacterInfo struct {
	MaxHP             float64 `json:"max_hp"`
	HP                float64 `json:"hp"`
	MaxStamina        float64 `json:"max_stamina"`
	HealthPotionQuant int     `json:"health_potion_quant"`
	State             string  `json:"state"`
}
