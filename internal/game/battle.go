package game

// Battle tuning. Combat stops once either side is at or below the
// health floor; the volley cap bounds runaway fights between
// ineffective combatants.
const (
	BattleHealthFloor = 10
	BattleVolleyCap   = 100
)

// Fight resolves combat between two entities in place and returns the
// number of volleys exchanged. Turn order is fixed once by ascending
// initiative. Each volley the first combatant strikes if still
// standing, then the second strikes back if still standing.
func Fight(a, b *Entity) int {
	if b.Initiative < a.Initiative {
		a, b = b, a
	}

	atkA := DeriveStats(a).Attack
	atkB := DeriveStats(b).Attack

	volleys := 0
	for volleys < BattleVolleyCap && a.Health > BattleHealthFloor && b.Health > BattleHealthFloor {
		if a.Health > 0 {
			b.Health -= atkA
		}
		if b.Health > 0 {
			a.Health -= atkB
		}
		volleys++
	}

	return volleys
}
