package model

type Villain struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Location    string              `json:"location"`
	HP          int                 `json:"hp"`
	AttackPower int                 `json:"attack_power"`
	Difficulty  ChallengeDifficulty `json:"difficulty"`
}

func (v *Villain) Defeated() bool {
	return v.HP <= 0
}
