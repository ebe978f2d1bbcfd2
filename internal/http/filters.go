package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/scoutline/scout-api/internal/domain/model"
	apperrors "github.com/scoutline/scout-api/internal/errors"
)

// ParseJobListOptions builds listing options from request query parameters.
// Unknown values produce validation errors rather than being dropped, so a
// misspelled filter never silently returns the unfiltered list.
//
// Recognized parameters: status, search, agents (comma separated),
// created_after, created_before (RFC 3339), sort, limit, offset.
func ParseJobListOptions(r *http.Request) (*model.JobListOptions, error) {
	q := r.URL.Query()
	opts := &model.JobListOptions{
		TargetSearch: strings.TrimSpace(q.Get("search")),
	}

	if v := q.Get("status"); v != "" {
		status := model.JobStatus(v)
		if !status.Valid() {
			return nil, apperrors.ValidationField("status", "unknown status: "+v)
		}
		opts.Status = &status
	}

	if v := q.Get("agents"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			agent := model.AgentType(strings.TrimSpace(raw))
			if agent == "" {
				continue
			}
			if !agent.Valid() {
				return nil, apperrors.ValidationField("agents", "unknown agent type: "+string(agent))
			}
			opts.Agents = append(opts.Agents, agent)
		}
	}

	after, err := parseTimeQuery(q.Get("created_after"), "created_after")
	if err != nil {
		return nil, err
	}
	opts.CreatedAfter = after

	before, err := parseTimeQuery(q.Get("created_before"), "created_before")
	if err != nil {
		return nil, err
	}
	opts.CreatedBefore = before

	if v := q.Get("sort"); v != "" {
		sort := model.JobSort(v)
		if !sort.Valid() {
			return nil, apperrors.ValidationField("sort", "unknown sort order: "+v)
		}
		opts.Sort = sort
	}

	opts.Limit, opts.Offset = ParseLimitOffset(r, model.DefaultJobListLimit, model.MaxJobListLimit)
	return opts, nil
}

func parseTimeQuery(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperrors.ValidationField(field, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}
