// Package access derives what an attendee's ticket grants: conference entry,
// gala entry, and whether the ticket may still be handed to someone else.
//
// Everything here is pure. Callers read the row, then ask the Policy.
package access

import (
	"strings"

	"github.com/farellandr/confpass/internal/models"
)

const (
	TypeConfGala       = "conf-gala"
	TypeConfOnly       = "conf-only"
	TypeVolunteer      = "volunteer"
	TypePress          = "press"
	TypeSpeaker        = "speaker"
	TypeOrganizer      = "organizer"
	TypeDelegation     = "delegation"
	TypeInvitee        = "invitee"
	TypeSpeakerInvitee = "speaker-invitee"
)

// DemoRef is the reference returned for the synthetic demo attendee.
const DemoRef = "DEMO"

var galaTypes = map[string]bool{
	TypeConfGala:       true,
	TypeVolunteer:      true,
	TypePress:          true,
	TypeSpeaker:        true,
	TypeOrganizer:      true,
	TypeDelegation:     true,
	TypeInvitee:        true,
	TypeSpeakerInvitee: true,
}

var transferableTypes = map[string]bool{
	TypeConfGala: true,
	TypeConfOnly: true,
}

type Flags struct {
	AccessConf   bool
	AccessGala   bool
	Transferable bool
}

// Policy carries the switches that alter the rules. The zero value applies the
// rules as-is.
type Policy struct {
	// AllTransferable marks every ticket transferable regardless of type or
	// transfer history. Meant for test environments only.
	AllTransferable bool
}

func (p Policy) Evaluate(ticketType, email, originalEmail string) Flags {
	transferable := transferableTypes[ticketType] && email == originalEmail
	if p.AllTransferable {
		transferable = true
	}

	return Flags{
		AccessConf:   true,
		AccessGala:   galaTypes[ticketType],
		Transferable: transferable,
	}
}

// View wraps a row with its derived flags.
func (p Policy) View(a models.Attendee) *models.AttendeeView {
	flags := p.Evaluate(a.Type, a.Email, a.OriginalEmail)
	return &models.AttendeeView{
		Attendee:     a,
		AccessConf:   flags.AccessConf,
		AccessGala:   flags.AccessGala,
		Transferable: flags.Transferable,
	}
}

func IsGalaType(ticketType string) bool {
	return galaTypes[ticketType]
}

func IsTransferableType(ticketType string) bool {
	return transferableTypes[ticketType]
}

func IsDemoRef(ref string) bool {
	return strings.EqualFold(ref, "demo")
}

// DemoAttendee returns the fixed profile served for the demo ref. It has every
// privilege and is always transferable.
func DemoAttendee() *models.AttendeeView {
	return &models.AttendeeView{
		Attendee: models.Attendee{
			Ref:           DemoRef,
			Name:          "Demo User",
			Email:         "demo@demo.com",
			OriginalEmail: "demo@demo.com",
			PhoneNumber:   "0123456789",
			Type:          TypeConfGala,
			Affiliation:   "None",
		},
		AccessConf:   true,
		AccessGala:   true,
		Transferable: true,
	}
}
