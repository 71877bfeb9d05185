package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"codefacts/internal/app"
	"codefacts/internal/consistency"
	"codefacts/internal/diff"
	"codefacts/internal/facts"
	"codefacts/internal/graph"
	"codefacts/internal/ingest"
	"codefacts/internal/projects"
	"codefacts/internal/query"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	var b strings.Builder
	switch v := resp.(type) {
	case *projects.Project:
		writeProject(&b, v)
	case *app.ListProjectsResponse:
		writeProjects(&b, v)
	case *app.IndexResponse:
		verb := "Already registered"
		if v.Created {
			verb = "Registered"
		}
		fmt.Fprintf(&b, "%s project %s (%s)", verb, v.ProjectID, v.Status)
	case *query.ListClassesResponse:
		writeClasses(&b, v)
	case *query.ListMethodsResponse:
		writeMethods(&b, v)
	case *query.ListEntryPointsResponse:
		writeEntryPoints(&b, v)
	case *query.GetMethodResponse:
		writeMethod(&b, v)
	case *query.GetClassResponse:
		writeClass(&b, v)
	case *query.GetClassMethodsResponse:
		header(&b, fmt.Sprintf("Methods of %s (%d)", v.Class, v.TotalCount))
		for _, m := range v.Methods {
			fmt.Fprintf(&b, "  %s  %s\n", methodSignature(m), location(m.FilePath, m.LineNumber))
		}
	case *query.ClassReferencesResponse:
		writeReferences(&b, v)
	case *query.SearchResponse:
		writeSearch(&b, v)
	case *query.StatsResponse:
		writeStats(&b, v)
	case *graph.Result:
		writeTraversal(&b, v)
	case *consistency.AccuracyReport:
		writeAccuracy(&b, v)
	case *consistency.CleanupReport:
		writeCleanup(&b, v)
	case *app.ValidateResponse:
		writeValidate(&b, v)
	case *ingest.Result:
		writeIngest(&b, v)
	case *DeleteResponseCLI:
		if v.Deleted {
			fmt.Fprintf(&b, "Deleted project %s", v.Project)
		} else {
			fmt.Fprintf(&b, "No project %s", v.Project)
		}
	case *ExportResponseCLI:
		fmt.Fprintf(&b, "Exported %d facts of %s to %s", v.Count, v.Project, v.Output)
	case *TokenResponseCLI:
		writeToken(&b, v)
	default:
		return formatJSON(resp)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func header(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n")
}

func location(path string, line int) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", path, line)
}

func pageFooter(b *strings.Builder, p query.Page, shown int) {
	if shown == 0 {
		b.WriteString("  (none)\n")
	}
	if p.HasMore {
		fmt.Fprintf(b, "\nShowing %d-%d of %d (use --offset %d for more)\n", p.Offset+1, p.Offset+shown, p.TotalCount, p.Offset+shown)
	}
}

func writeProject(b *strings.Builder, p *projects.Project) {
	header(b, fmt.Sprintf("Project %s", p.Name))
	fmt.Fprintf(b, "ID:       %s\n", p.ID)
	fmt.Fprintf(b, "Path:     %s\n", p.Path)
	fmt.Fprintf(b, "Status:   %s (%d%%)\n", p.Status, p.Progress)
	if p.Message != "" {
		fmt.Fprintf(b, "Message:  %s\n", p.Message)
	}
	if p.Source != "" {
		fmt.Fprintf(b, "Source:   %s\n", p.Source)
	}
	if p.StartedAt != nil {
		fmt.Fprintf(b, "Duration: %s\n", p.Duration().Round(time.Millisecond))
	}
	s := p.Stats
	fmt.Fprintf(b, "Facts:    %d received, %d written, %d updated, %d unchanged, %d invalid, %d duplicates\n",
		s.Received, s.Written, s.Updated, s.Unchanged, s.Invalid, s.Duplicates)
	if len(p.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range p.Errors {
			fmt.Fprintf(b, "  - %s\n", e)
		}
	}
}

func writeProjects(b *strings.Builder, r *app.ListProjectsResponse) {
	header(b, fmt.Sprintf("Projects (%d)", r.TotalCount))
	if len(r.Projects) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, p := range r.Projects {
		fmt.Fprintf(b, "  %s  %-10s %3d%%  %s\n", p.ID, p.Status, p.Progress, p.Path)
	}
}

func writeClasses(b *strings.Builder, r *query.ListClassesResponse) {
	header(b, fmt.Sprintf("Classes (%d)", r.TotalCount))
	for _, c := range r.Classes {
		fmt.Fprintf(b, "  %s  %d methods  %s\n", c.Class, c.MethodCount, location(c.FilePath, c.LineNumber))
	}
	pageFooter(b, r.Page, len(r.Classes))
}

func writeMethods(b *strings.Builder, r *query.ListMethodsResponse) {
	header(b, fmt.Sprintf("Methods (%d)", r.TotalCount))
	for _, m := range r.Methods {
		fmt.Fprintf(b, "  %s  %s\n", methodSignature(m), location(m.FilePath, m.LineNumber))
	}
	pageFooter(b, r.Page, len(r.Methods))
}

func methodSignature(m facts.MethodDefinition) string {
	sig := fmt.Sprintf("%s(%s)", m.Method, strings.Join(m.Parameters, ", "))
	if m.ReturnType != "" {
		sig += " " + m.ReturnType
	}
	return sig
}

func writeEntryPoints(b *strings.Builder, r *query.ListEntryPointsResponse) {
	header(b, fmt.Sprintf("Entry points (%d)", r.TotalCount))
	for _, e := range r.EntryPoints {
		fmt.Fprintf(b, "  [%s] %s  %s\n", e.Kind, e.Method, location(e.FilePath, e.LineNumber))
	}
	pageFooter(b, r.Page, len(r.EntryPoints))
}

func writeMethod(b *strings.Builder, r *query.GetMethodResponse) {
	m := r.Method
	header(b, m.Method)
	fmt.Fprintf(b, "Signature: %s\n", methodSignature(m))
	fmt.Fprintf(b, "Class:     %s\n", m.Class)
	if m.AccessModifier != "" {
		fmt.Fprintf(b, "Access:    %s\n", m.AccessModifier)
	}
	fmt.Fprintf(b, "Location:  %s\n", location(m.FilePath, m.LineNumber))
	fmt.Fprintf(b, "Calls:     %d incoming, %d outgoing\n", r.IncomingCalls, r.OutgoingCalls)
}

func writeClass(b *strings.Builder, r *query.GetClassResponse) {
	c := r.Class
	header(b, c.Class)
	if c.AccessModifier != "" {
		fmt.Fprintf(b, "Access:     %s\n", c.AccessModifier)
	}
	if c.BaseClass != "" {
		fmt.Fprintf(b, "Base:       %s\n", c.BaseClass)
	}
	if len(c.Interfaces) > 0 {
		fmt.Fprintf(b, "Implements: %s\n", strings.Join(c.Interfaces, ", "))
	}
	fmt.Fprintf(b, "Members:    %d methods (%d stored), %d properties, %d fields\n",
		c.MethodCount, r.StoredMethods, c.PropertyCount, c.FieldCount)
	fmt.Fprintf(b, "Location:   %s\n", location(c.FilePath, c.LineNumber))
}

func writeReferences(b *strings.Builder, r *query.ClassReferencesResponse) {
	header(b, fmt.Sprintf("References from %s (%d)", r.Class, r.TotalCount))
	if len(r.References) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, ref := range r.References {
		fmt.Fprintf(b, "  %-10s %s", ref.RelationshipType, ref.Target)
		if ref.Count > 1 {
			fmt.Fprintf(b, " (x%d)", ref.Count)
		}
		b.WriteString("\n")
	}
}

func writeSearch(b *strings.Builder, r *query.SearchResponse) {
	header(b, fmt.Sprintf("Search %q (%d hits)", r.Query, len(r.Hits)))
	for _, h := range r.Hits {
		fmt.Fprintf(b, "  %6.2f  %-18s %s\n", h.Score, h.Type, h.Fact.IdentityKey())
	}
	if len(r.Hits) == 0 {
		b.WriteString("  (none)\n")
	}
}

func writeStats(b *strings.Builder, r *query.StatsResponse) {
	header(b, fmt.Sprintf("Facts (%d)", r.Total))
	for _, t := range facts.AllTypes {
		fmt.Fprintf(b, "  %-18s %d\n", t, r.Counts[t])
	}
	fmt.Fprintf(b, "\nCall edges: %d\n", r.CallEdges)
	if r.Skipped+r.Malformed+r.Duplicates > 0 {
		fmt.Fprintf(b, "Skipped: %d  Malformed: %d  Duplicates: %d\n", r.Skipped, r.Malformed, r.Duplicates)
	}
}

func writeTraversal(b *strings.Builder, r *graph.Result) {
	header(b, fmt.Sprintf("%s of %s (depth %d)", r.Direction, r.Method, r.Depth))
	if len(r.Nodes) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, n := range r.Nodes {
		indent := strings.Repeat("  ", n.Depth+1)
		fmt.Fprintf(b, "%s%s  %s\n", indent, n.Method, location(n.FilePath, n.LineNumber))
	}
}

func writeMetrics(b *strings.Builder, label string, m diff.Metrics) {
	fmt.Fprintf(b, "  %-18s P=%.3f R=%.3f F1=%.3f  (%d correct, %d missing, %d extra)\n",
		label, m.Precision, m.Recall, m.F1, m.Correct, m.Missing, m.Extra)
}

func writeAccuracy(b *strings.Builder, r *consistency.AccuracyReport) {
	header(b, fmt.Sprintf("Accuracy of %s", r.ProjectID))
	for _, t := range facts.AllTypes {
		writeMetrics(b, string(t), r.ByType[t])
	}
	writeMetrics(b, "overall", r.Overall)
	for _, t := range facts.AllTypes {
		m := r.ByType[t]
		writeItems(b, "Missing "+string(t), m.MissingItems)
		writeItems(b, "Extra "+string(t), m.ExtraItems)
	}
	if r.GroundTruthInvalid > 0 {
		fmt.Fprintf(b, "\n%d extracted records failed validation and were ignored\n", r.GroundTruthInvalid)
	}
}

const maxListedItems = 20

func writeItems(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", label, len(items))
	for i, it := range items {
		if i == maxListedItems {
			fmt.Fprintf(b, "  ... %d more\n", len(items)-maxListedItems)
			break
		}
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

func writeCleanup(b *strings.Builder, r *consistency.CleanupReport) {
	title := "Cleanup"
	if r.DryRun {
		title = "Cleanup (dry run)"
	}
	header(b, title)
	types := make([]string, 0, len(r.ByType))
	for t := range r.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		c := r.ByType[facts.Type(t)]
		fmt.Fprintf(b, "  %-18s kept %d, stale %d, deleted %d, failed %d\n", t, c.Kept, c.Stale, c.Deleted, c.Failed)
	}
	fmt.Fprintf(b, "  %-18s kept %d, stale %d, deleted %d, failed %d\n", "total",
		r.Totals.Kept, r.Totals.Stale, r.Totals.Deleted, r.Totals.Failed)
	stale := make([]string, 0, len(r.StaleItems))
	for _, it := range r.StaleItems {
		line := it.Identity
		if it.Error != "" {
			line += " (" + it.Error + ")"
		}
		stale = append(stale, line)
	}
	writeItems(b, "Stale", stale)
}

func writeFailures(b *strings.Builder, failures []facts.IndexedResult) {
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		msgs := make([]string, 0, len(f.Errors))
		for _, e := range f.Errors {
			msgs = append(msgs, e.Error())
		}
		lines = append(lines, fmt.Sprintf("record %d: %s", f.Index, strings.Join(msgs, "; ")))
	}
	writeItems(b, "Invalid records", lines)
}

func writeValidate(b *strings.Builder, r *app.ValidateResponse) {
	header(b, fmt.Sprintf("Validate %s", r.Path))
	fmt.Fprintf(b, "Records: %d  Valid: %d  Invalid: %d\n", r.Records, r.Valid, r.Invalid)
	writeFailures(b, r.Failures)
}

func writeIngest(b *strings.Builder, r *ingest.Result) {
	header(b, "Import")
	fmt.Fprintf(b, "Received: %d  Written: %d  Updated: %d  Unchanged: %d\n", r.Received, r.Written, r.Updated, r.Unchanged)
	fmt.Fprintf(b, "Invalid: %d  Duplicates: %d  Repaired: %d\n", r.Invalid, r.Duplicates, r.Repaired)
	writeFailures(b, r.Failures)
}
