package handlers

import (
	"strings"

	"mycontroller/domain"
)

// toSessionInfo converts a domain instance to its API shape; url is the externally
// reachable address of the session through the reverse proxy.
func toSessionInfo(inst domain.WorkloadInstance, baseURL string) SessionInfo {
	return SessionInfo{
		Key:          inst.Key,
		Url:          launchURL(baseURL, inst.Key),
		InstanceId:   inst.ID,
		State:        string(inst.State),
		Address:      inst.Address,
		CreatedAt:    inst.CreatedAt,
		LastActiveAt: inst.LastActiveAt,
	}
}

// toSessionsResponse converts the registry snapshot and the recent-event feed to the
// list response.
func toSessionsResponse(instances []domain.WorkloadInstance, events []domain.StatusEvent, baseURL string) SessionsResponse {
	out := make([]SessionInfo, 0, len(instances))
	for _, inst := range instances {
		out = append(out, toSessionInfo(inst, baseURL))
	}
	evs := make([]StatusEventInfo, 0, len(events))
	for _, ev := range events {
		evs = append(evs, StatusEventInfo{At: ev.At, Message: ev.Message})
	}
	return SessionsResponse{Sessions: out, Events: evs}
}

// launchURL renders the external session URL, e.g. http://proxy.example/session/ab12cd34/.
// The trailing slash matters: relative asset paths inside the workload resolve under the
// session prefix only when the browser lands on the slashed form.
func launchURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + domain.SessionPath(key) + "/"
}
