package session

import "sync"

// Step names for the report wizard and profile sub-flow. StepNone means the
// actor is idle at the main menu.
type Step string

const (
	StepNone Step = ""

	StepProfileWaitName Step = "profile_wait_name"
	StepProfileWaitRole Step = "profile_wait_role"
	StepProfileEditName Step = "profile_edit_name"

	StepReportArea          Step = "report_area"
	StepReportWorkshop      Step = "report_workshop_subarea"
	StepReportTransport     Step = "report_transport_type"
	StepReportMachine       Step = "report_production_machine"
	StepReportLine          Step = "report_packing_line"
	StepReportTech          Step = "report_tech_item"
	StepReportProdComponent Step = "report_production_component"
	StepReportPackComponent Step = "report_packing_component"
	StepReportGroupCut      Step = "report_group_cut_subitem"
	StepReportDescription   Step = "report_description"

	StepFixPick Step = "fix_pick_issue"
)

// Data holds the partially-built issue plus flow scratch values. Pointer
// fields distinguish "not set" from "set to empty"; machine-raw keeps the
// selected machine while equipment is rewritten into a composite path.
type Data struct {
	Area         *string
	Subarea      *string
	Equipment    *string
	Component    *string
	MachineRaw   *string
	FullName     *string
	StartPayload *string
}

type Session struct {
	Step Step
	Data Data
}

// Patch carries field updates for Advance. A nil entry is ignored; a non-nil
// entry replaces the field, where the inner pointer may be nil to clear it.
type Patch struct {
	Area         **string
	Subarea      **string
	Equipment    **string
	Component    **string
	MachineRaw   **string
	FullName     **string
	StartPayload **string
}

// Store keeps one transient session per actor. Sessions live only as long as
// the process; a restart drops all in-flight wizards.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// GetOrCreate returns the actor's session, creating an idle one if missing.
func (s *Store) GetOrCreate(actorID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[actorID]; ok {
		return *sess
	}
	s.sessions[actorID] = &Session{}
	return Session{}
}

// Reset returns the actor to the idle state with empty data.
func (s *Store) Reset(actorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[actorID] = &Session{}
}

// Advance moves the actor to step and merges the patch into its data.
func (s *Store) Advance(actorID int64, step Step, patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[actorID]
	if !ok {
		sess = &Session{}
		s.sessions[actorID] = sess
	}
	sess.Step = step
	apply(&sess.Data.Area, patch.Area)
	apply(&sess.Data.Subarea, patch.Subarea)
	apply(&sess.Data.Equipment, patch.Equipment)
	apply(&sess.Data.Component, patch.Component)
	apply(&sess.Data.MachineRaw, patch.MachineRaw)
	apply(&sess.Data.FullName, patch.FullName)
	apply(&sess.Data.StartPayload, patch.StartPayload)
}

func apply(field **string, patch **string) {
	if patch != nil {
		*field = *patch
	}
}

// Set wraps a value for use in a Patch.
func Set(v string) **string {
	p := &v
	return &p
}

// Clear produces a Patch entry that nulls the field.
func Clear() **string {
	var p *string
	return &p
}
