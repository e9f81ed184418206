package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTeam(t *testing.T) {
	team, ok := ParseTeam(" b ")
	assert.True(t, ok)
	assert.Equal(t, TeamB, team)

	_, ok = ParseTeam("C")
	assert.False(t, ok)
}

func TestSlotKeyValid(t *testing.T) {
	assert.True(t, SlotKey{Team: TeamA, Index: 0}.Valid())
	assert.True(t, SlotKey{Team: TeamB, Index: RosterSize - 1}.Valid())
	assert.False(t, SlotKey{Team: TeamA, Index: RosterSize}.Valid())
	assert.False(t, SlotKey{Team: TeamA, Index: -1}.Valid())
	assert.False(t, SlotKey{Team: "C", Index: 0}.Valid())
}

func TestClampedPosition(t *testing.T) {
	assert.Equal(t, Position{X: 4, Y: 96}, Position{X: -10, Y: 120}.Clamped())
	assert.Equal(t, Position{X: 10, Y: 90}, Position{X: 10, Y: 90}.Clamped())
}

func TestFormationPointMirrorsTeamB(t *testing.T) {
	assert.Equal(t, Position{X: 50, Y: 6}, FormationPoint(SlotKey{Team: TeamA, Index: 0}))
	assert.Equal(t, Position{X: 50, Y: 94}, FormationPoint(SlotKey{Team: TeamB, Index: 0}))
	assert.Equal(t, Position{X: 86, Y: 78}, FormationPoint(SlotKey{Team: TeamB, Index: 3}))
}

func TestPlayerPresentAndInitials(t *testing.T) {
	p := Player{Name: "  "}
	assert.False(t, p.Present())

	p = Player{Name: "cristiano ronaldo dos santos"}
	assert.True(t, p.Present())
	assert.Equal(t, "CR", p.Initials())
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t, "", AvatarURL(""))
	assert.Equal(t, "https://api.dicebear.com/7.x/big-smile/svg?seed=a+b%26c&backgroundColor=transparent", AvatarURL("a b&c"))
}
