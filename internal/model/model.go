package model

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Teams lists both teams in their stable iteration order.
var Teams = []Team{TeamA, TeamB}

func ParseTeam(value string) (Team, bool) {
	switch Team(strings.ToUpper(strings.TrimSpace(value))) {
	case TeamA:
		return TeamA, true
	case TeamB:
		return TeamB, true
	}
	return "", false
}

func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

func (t Team) Label() string {
	return "Team " + string(t)
}

const RosterSize = 7

const (
	MinCoord = 4.0
	MaxCoord = 96.0
)

type SlotKey struct {
	Team  Team
	Index int
}

func (k SlotKey) Valid() bool {
	return k.Team.Valid() && k.Index >= 0 && k.Index < RosterSize
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%d", k.Team, k.Index)
}

func (k SlotKey) Label() string {
	return fmt.Sprintf("Slot %d", k.Index+1)
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Clamp(value float64) float64 {
	if math.IsNaN(value) || value < MinCoord {
		return MinCoord
	}
	if value > MaxCoord {
		return MaxCoord
	}
	return value
}

func (p Position) Clamped() Position {
	return Position{X: Clamp(p.X), Y: Clamp(p.Y)}
}

var formation = [RosterSize]Position{
	{X: 50, Y: 6},
	{X: 14, Y: 22},
	{X: 50, Y: 20},
	{X: 86, Y: 22},
	{X: 30, Y: 36},
	{X: 70, Y: 36},
	{X: 50, Y: 42},
}

// FormationPoint returns the default pitch position of a slot. Team B mirrors
// team A across the halfway line.
func FormationPoint(key SlotKey) Position {
	if key.Index < 0 || key.Index >= RosterSize {
		return Position{X: 50, Y: 50}
	}
	point := formation[key.Index]
	if key.Team == TeamB {
		point.Y = 100 - point.Y
	}
	return point
}

type Player struct {
	ID         string
	Name       string
	AvatarSeed string
	Team       Team
	Slot       int
	Position   Position
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p Player) Key() SlotKey {
	return SlotKey{Team: p.Team, Index: p.Slot}
}

// Present reports whether the player occupies its slot. A blank name means
// the slot is empty.
func (p Player) Present() bool {
	return strings.TrimSpace(p.Name) != ""
}

func (p Player) Initials() string {
	var initials []rune
	for _, part := range strings.Fields(p.Name) {
		if len(initials) == 2 {
			break
		}
		initials = append(initials, []rune(strings.ToUpper(part))[0])
	}
	return string(initials)
}

func AvatarURL(seed string) string {
	if seed == "" {
		return ""
	}
	return "https://api.dicebear.com/7.x/big-smile/svg?seed=" + url.QueryEscape(seed) + "&backgroundColor=transparent"
}
