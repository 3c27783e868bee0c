package gamification

// XPPerLevel is the XP width of every level.
const XPPerLevel = 600

// LevelOf derives the level from total XP. Level 1 starts at 0 XP.
func LevelOf(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// XPToNextLevel returns how much XP is missing before the next level.
func XPToNextLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return LevelOf(xp)*XPPerLevel - xp
}

// DetectLevelUp compares the persisted level with the level xp implies.
// It only ever reports forward moves.
func DetectLevelUp(storedLevel, xp int) (int, bool) {
	next := LevelOf(xp)
	if next > storedLevel {
		return next, true
	}
	return storedLevel, false
}
