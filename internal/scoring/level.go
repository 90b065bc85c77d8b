package scoring

// DefaultXPPerLevel is the canonical level size.
const DefaultXPPerLevel = 1000

// Leveling is the XP to level arithmetic.
type Leveling struct {
	XPPerLevel int
}

func NewLeveling(xpPerLevel int) Leveling {
	if xpPerLevel < 1 {
		xpPerLevel = 1
	}
	return Leveling{XPPerLevel: xpPerLevel}
}

func (l Leveling) per() int {
	if l.XPPerLevel < 1 {
		return DefaultXPPerLevel
	}
	return l.XPPerLevel
}

// Level starts at 1. Negative XP is treated as zero.
func (l Leveling) Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/l.per() + 1
}

// XPForNextLevel is the XP still missing to reach the next level.
func (l Leveling) XPForNextLevel(xp int) int {
	return l.Level(xp)*l.per() - xp
}

// LevelProgress is the share of the current level already earned, 0-100.
func (l Leveling) LevelProgress(xp int) float64 {
	if xp < 0 {
		xp = 0
	}
	inLevel := xp - (l.Level(xp)-1)*l.per()
	return float64(inLevel) / float64(l.per()) * 100
}
