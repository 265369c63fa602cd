package conversation

import (
	"errors"
	"fmt"

	"salonbot/internal/models"
)

// Flow identifies which intake a session is running
type Flow string

const (
	FlowClient Flow = "client"
	FlowSalon  Flow = "salon"
	FlowOrder  Flow = "order"
)

// Step names the input a session is waiting for
type Step string

// StepDone marks a finished session; it is never persisted
const StepDone Step = "done"

// Client intake
const (
	StepClientFullName   Step = "client.full_name"
	StepClientEmail      Step = "client.email"
	StepClientPhone      Step = "client.phone"
	StepClientNoteChoice Step = "client.note_choice"
	StepClientNote       Step = "client.note"
)

// Salon intake
const (
	StepSalonName                  Step = "salon.name"
	StepSalonLocation              Step = "salon.location"
	StepSalonPhoto                 Step = "salon.photo"
	StepSalonEmail                 Step = "salon.email"
	StepSalonPhone                 Step = "salon.phone"
	StepSalonPerson                Step = "salon.person"
	StepSalonPromoChoice           Step = "salon.promo_choice"
	StepSalonPromoName             Step = "salon.promo_name"
	StepSalonAdditionalPhotoChoice Step = "salon.additional_photo_choice"
	StepSalonAdditionalPhoto       Step = "salon.additional_photo"
	StepSalonSocialChoice          Step = "salon.social_choice"
	StepSalonSocialLink            Step = "salon.social_link"
	StepSalonNoteChoice            Step = "salon.note_choice"
	StepSalonNote                  Step = "salon.note"
)

// Order intake
const (
	StepOrderPhoto         Step = "order.photo"
	StepOrderCount         Step = "order.count"
	StepOrderChoice        Step = "order.choice"
	StepOrderPromo         Step = "order.promo"
	StepOrderPayment       Step = "order.payment"
	StepOrderPriceChoice   Step = "order.price_choice"
	StepOrderFixedDiscount Step = "order.fixed_discount"
)

var flowSteps = map[Flow][]Step{
	FlowClient: {
		StepClientFullName, StepClientEmail, StepClientPhone,
		StepClientNoteChoice, StepClientNote,
	},
	FlowSalon: {
		StepSalonName, StepSalonLocation, StepSalonPhoto, StepSalonEmail,
		StepSalonPhone, StepSalonPerson, StepSalonPromoChoice, StepSalonPromoName,
		StepSalonAdditionalPhotoChoice, StepSalonAdditionalPhoto,
		StepSalonSocialChoice, StepSalonSocialLink,
		StepSalonNoteChoice, StepSalonNote,
	},
	FlowOrder: {
		StepOrderPhoto, StepOrderCount, StepOrderChoice, StepOrderPromo,
		StepOrderPayment, StepOrderPriceChoice, StepOrderFixedDiscount,
	},
}

var (
	ErrUnknownFlow   = errors.New("unknown flow")
	ErrUnknownStep   = errors.New("step does not belong to flow")
	ErrMissingRecord = errors.New("session has no record for its flow")
)

// Session is everything needed to resume a conversation: the awaited step,
// the record being filled in and, for orders, the remote order handle.
type Session struct {
	Flow   Flow                 `json:"flow"`
	Step   Step                 `json:"step"`
	Client *models.ClientRecord `json:"client,omitempty"`
	Salon  *models.SalonRecord  `json:"salon,omitempty"`
	Order  *models.OrderRecord  `json:"order,omitempty"`
	Remote *models.RemoteOrder  `json:"remote,omitempty"`
}

// newSession returns a session for flow with an empty record
func newSession(flow Flow) *Session {
	s := &Session{Flow: flow}
	switch flow {
	case FlowClient:
		s.Client = &models.ClientRecord{}
	case FlowSalon:
		s.Salon = models.NewSalonRecord()
	case FlowOrder:
		s.Order = models.NewOrderRecord()
	}
	return s
}

// Done reports whether the conversation has ended
func (s *Session) Done() bool {
	return s.Step == StepDone
}

// Validate checks a session loaded from a store is resumable
func (s *Session) Validate() error {
	steps, ok := flowSteps[s.Flow]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFlow, s.Flow)
	}
	if s.Step == StepDone {
		return nil
	}

	known := false
	for _, step := range steps {
		if step == s.Step {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q in %q", ErrUnknownStep, s.Step, s.Flow)
	}

	switch {
	case s.Flow == FlowClient && s.Client == nil,
		s.Flow == FlowSalon && s.Salon == nil,
		s.Flow == FlowOrder && s.Order == nil:
		return fmt.Errorf("%w: %q", ErrMissingRecord, s.Flow)
	}
	if s.Flow == FlowOrder && (s.Step == StepOrderPriceChoice || s.Step == StepOrderFixedDiscount) && s.Remote == nil {
		return fmt.Errorf("%w: remote order for %q", ErrMissingRecord, s.Step)
	}
	return nil
}
