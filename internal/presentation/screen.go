// Package presentation decides which screen a client shows for the current round.
package presentation

import "caixamisteriosa/internal/domain"

// Screen identifies a client screen
type Screen string

const (
	ScreenOperatorSetup  Screen = "operator_setup"
	ScreenOperatorLive   Screen = "operator_live"
	ScreenOperatorDraw   Screen = "operator_draw"
	ScreenOperatorResult Screen = "operator_result"

	ScreenParticipantWaiting   Screen = "participant_waiting"
	ScreenParticipantForm      Screen = "participant_form"
	ScreenParticipantSubmitted Screen = "participant_submitted"
	ScreenParticipantClosed    Screen = "participant_closed"
	ScreenParticipantResult    Screen = "participant_result"
)

var operatorScreens = map[domain.Status]Screen{
	domain.StatusPending:   ScreenOperatorSetup,
	domain.StatusAccepting: ScreenOperatorLive,
	domain.StatusClosed:    ScreenOperatorDraw,
	domain.StatusFinished:  ScreenOperatorResult,
}

var participantScreens = map[domain.Status]Screen{
	domain.StatusPending:   ScreenParticipantWaiting,
	domain.StatusAccepting: ScreenParticipantForm,
	domain.StatusClosed:    ScreenParticipantClosed,
	domain.StatusFinished:  ScreenParticipantResult,
}

// ScreenFor maps a role and round status to the screen to display
func ScreenFor(role domain.Role, status domain.Status, hasSubmitted bool) Screen {
	if role.IsOperator() {
		if screen, ok := operatorScreens[status]; ok {
			return screen
		}
		return ScreenOperatorSetup
	}

	if status == domain.StatusAccepting && hasSubmitted {
		return ScreenParticipantSubmitted
	}
	if screen, ok := participantScreens[status]; ok {
		return screen
	}
	return ScreenParticipantWaiting
}

// View is the per-client state message: the round as the role may see it and its screen
type View struct {
	Screen       Screen           `json:"screen"`
	Role         domain.Role      `json:"role"`
	HasSubmitted bool             `json:"hasSubmitted"`
	Round        domain.RoundView `json:"round"`
}

// Render builds the view of a round for one client
func Render(round *domain.Round, role domain.Role, hasSubmitted bool) View {
	return View{
		Screen:       ScreenFor(role, domain.StatusOf(round), hasSubmitted),
		Role:         role,
		HasSubmitted: hasSubmitted,
		Round:        domain.ViewFor(round, role),
	}
}
