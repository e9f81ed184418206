package board

import (
	"github.com/AlouiLouai/takwira/internal/gesture"
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/onboarding"
	"github.com/AlouiLouai/takwira/internal/store"
)

type View struct {
	Teams     []TeamView       `json:"teams"`
	Selection *SelectionView   `json:"selection,omitempty"`
	NameInput string           `json:"name_input"`
	Error     string           `json:"error,omitempty"`
	Loading   bool             `json:"loading"`
	Readiness *store.Readiness `json:"readiness,omitempty"`
	// Setup is true when the players table is unusable and the client should
	// show setup guidance instead of the pitch.
	Setup    bool         `json:"setup"`
	Drag     *DragView    `json:"drag,omitempty"`
	Tutorial TutorialView `json:"tutorial"`
}

type TeamView struct {
	ID    model.Team `json:"id"`
	Label string     `json:"label"`
	Slots []SlotView `json:"slots"`
}

type SlotView struct {
	Index    int            `json:"index"`
	Label    string         `json:"label"`
	Occupied bool           `json:"occupied"`
	Name     string         `json:"name,omitempty"`
	Initials string         `json:"initials,omitempty"`
	Avatar   string         `json:"avatar_url,omitempty"`
	Position model.Position `json:"position"`
	Selected bool           `json:"selected"`
	Dragging bool           `json:"dragging"`
}

type SelectionView struct {
	Team         model.Team `json:"team"`
	Slot         int        `json:"slot"`
	TeamLabel    string     `json:"team_label"`
	SlotLabel    string     `json:"slot_label"`
	ActivePlayer string     `json:"active_player,omitempty"`
}

type DragView struct {
	Team  model.Team `json:"team"`
	Slot  int        `json:"slot"`
	Moved bool       `json:"moved"`
}

type TutorialView struct {
	Step      int    `json:"step"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// View renders the board state. Empty slots sit at their formation point.
func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.roster.Snapshot()
	v := View{
		NameInput: snap.EditBuffer,
		Error:     snap.Error,
		Loading:   snap.Loading,
		Readiness: snap.Readiness,
		Setup:     snap.Readiness != nil && !snap.Readiness.IsReady && !snap.Loading,
	}

	for _, team := range model.Teams {
		tv := TeamView{ID: team, Label: team.Label(), Slots: make([]SlotView, 0, model.RosterSize)}
		for i, p := range snap.Rosters[team] {
			key := model.SlotKey{Team: team, Index: i}
			sv := SlotView{
				Index:    i,
				Label:    key.Label(),
				Position: model.FormationPoint(key),
				Selected: snap.Selection != nil && *snap.Selection == key,
			}
			if p != nil {
				sv.Occupied = true
				sv.Name = p.Name
				sv.Initials = p.Initials()
				sv.Avatar = model.AvatarURL(p.AvatarSeed)
				sv.Position = p.Position
			}
			if state := b.tracker.State(key); state != gesture.Idle {
				sv.Dragging = state == gesture.Dragging
				if v.Drag == nil {
					v.Drag = &DragView{Team: team, Slot: i, Moved: sv.Dragging}
				}
			}
			tv.Slots = append(tv.Slots, sv)
		}
		v.Teams = append(v.Teams, tv)
	}

	if sel := snap.Selection; sel != nil {
		v.Selection = &SelectionView{
			Team:      sel.Team,
			Slot:      sel.Index,
			TeamLabel: sel.Team.Label(),
			SlotLabel: sel.Label(),
		}
		if p := snap.Rosters[sel.Team][sel.Index]; p != nil {
			v.Selection.ActivePlayer = p.Name
		}
	}

	step := b.tutorial.Step()
	v.Tutorial = TutorialView{Step: int(step), Name: step.String(), Completed: step == onboarding.StepCompleted}
	return v
}
