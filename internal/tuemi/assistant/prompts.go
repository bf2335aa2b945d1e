package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
)

func enrichSystem(language string) string {
	return fmt.Sprintf("You assist the dispatch desk of a university transport service. "+
		"Rewrite incident reports for operators in %s, in at most three sentences. "+
		"Keep every number, coordinate and time exactly as given. Do not invent causes.", language)
}

func enrichPrompt(in incident.Input, v incident.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident kinds: %s\n", joinKinds(v.Kinds))
	fmt.Fprintf(&b, "Computed details: %s\n", v.Details)
	fmt.Fprintf(&b, "Position: %s at %s\n", in.Current.Point(), in.Current.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Speed: %.1f km/h (trip average %.1f km/h)\n", in.Speed, in.AverageSpeed)
	fmt.Fprintf(&b, "Passengers: %d of %d seats\n", in.Passengers, in.Capacity)
	if in.LastKnownGood != nil {
		fmt.Fprintf(&b, "Last known good position: %s at %s (%.0f m away)\n",
			in.LastKnownGood.Point(), in.LastKnownGood.Timestamp.UTC().Format(time.RFC3339), incident.Distance(in))
	}
	if in.StoppedSince != nil {
		fmt.Fprintf(&b, "Stopped since: %s\n", in.StoppedSince.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func suggestSystem(language string) string {
	return fmt.Sprintf("You help students of a university transport service when their route is disrupted. "+
		"Answer in %s with short, practical advice. Only recommend the alternative routes listed; "+
		"if none are listed, suggest waiting or other means of transport.", language)
}

func suggestPrompt(req core.SuggestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Route: %s\n", req.Route.Name)
	if req.Origin != nil {
		fmt.Fprintf(&b, "Rider is at stop: %s\n", req.Origin.Name)
	}

	names := make([]string, 0, len(req.Stops))
	for _, s := range req.Stops {
		names = append(names, s.Name)
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "Stops: %s\n", strings.Join(names, " → "))
	}

	if len(req.Incidents) == 0 {
		b.WriteString("Open incidents: none reported\n")
	} else {
		b.WriteString("Open incidents:\n")
		for _, i := range req.Incidents {
			fmt.Fprintf(&b, "- %s: %s\n", i.Kind, i.Details)
		}
	}

	if len(req.Candidates) == 0 {
		b.WriteString("Alternative routes nearby: none\n")
	} else {
		b.WriteString("Alternative routes nearby:\n")
		for _, c := range req.Candidates {
			fmt.Fprintf(&b, "- %s, boarding at %s, %.0f m away\n", c.Route.Name, c.Stop.Name, c.DistanceM)
		}
	}
	return b.String()
}

func joinKinds(kinds []incident.Kind) string {
	s := make([]string, len(kinds))
	for i, k := range kinds {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
