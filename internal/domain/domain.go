package domain

// Issue status values stored in the issues table.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

type User struct {
	ActorID   int64  `json:"actor_id"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Issue struct {
	ID                   int64   `json:"id"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
	ReporterID           int64   `json:"reporter_id"`
	ReporterDisplayName  string  `json:"reporter_display_name,omitempty"`
	Area                 string  `json:"area,omitempty"`
	Subarea              string  `json:"subarea,omitempty"`
	EquipmentPath        string  `json:"equipment_path,omitempty"`
	Description          string  `json:"description"`
	Status               string  `json:"status" enum:"open,closed"`
	ResolvedAt           *string `json:"resolved_at,omitempty" format:"date-time"`
	ResolverID           *int64  `json:"resolver_id,omitempty"`
	ResolverDisplayName  *string `json:"resolver_display_name,omitempty"`
	ReporterNameSnapshot string  `json:"reporter_name_snapshot,omitempty"`
	ReporterRoleSnapshot string  `json:"reporter_role_snapshot,omitempty"`
}

// Place joins area, subarea and equipment path with " / " the way history
// listings and close confirmations render the fault location.
func (i Issue) Place() string {
	out := ""
	for _, p := range []string{i.Area, i.Subarea, i.EquipmentPath} {
		if p == "" {
			continue
		}
		if out != "" {
			out += " / "
		}
		out += p
	}
	return out
}

type OpsKey struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
