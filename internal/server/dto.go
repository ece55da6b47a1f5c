package server

import "github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"

type IssueResponse struct {
	ID                   int64   `json:"id"`
	CreatedAt            string  `json:"created_at"`
	ReporterID           int64   `json:"reporter_id"`
	ReporterDisplayName  string  `json:"reporter_display_name,omitempty"`
	Area                 string  `json:"area,omitempty"`
	Subarea              string  `json:"subarea,omitempty"`
	EquipmentPath        string  `json:"equipment_path,omitempty"`
	Description          string  `json:"description"`
	Status               string  `json:"status"`
	ResolvedAt           *string `json:"resolved_at,omitempty"`
	ResolverID           *int64  `json:"resolver_id,omitempty"`
	ResolverDisplayName  *string `json:"resolver_display_name,omitempty"`
	ReporterNameSnapshot string  `json:"reporter_name_snapshot,omitempty"`
	ReporterRoleSnapshot string  `json:"reporter_role_snapshot,omitempty"`
}

func issueResponse(i domain.Issue) IssueResponse {
	return IssueResponse{
		ID:                   i.ID,
		CreatedAt:            i.CreatedAt,
		ReporterID:           i.ReporterID,
		ReporterDisplayName:  i.ReporterDisplayName,
		Area:                 i.Area,
		Subarea:              i.Subarea,
		EquipmentPath:        i.EquipmentPath,
		Description:          i.Description,
		Status:               i.Status,
		ResolvedAt:           i.ResolvedAt,
		ResolverID:           i.ResolverID,
		ResolverDisplayName:  i.ResolverDisplayName,
		ReporterNameSnapshot: i.ReporterNameSnapshot,
		ReporterRoleSnapshot: i.ReporterRoleSnapshot,
	}
}

func mapIssues(items []domain.Issue) []IssueResponse {
	res := make([]IssueResponse, 0, len(items))
	for _, i := range items {
		res = append(res, issueResponse(i))
	}
	return res
}

type CloseIssueRequest struct {
	ResolverName string `json:"resolver_name,omitempty"`
}
