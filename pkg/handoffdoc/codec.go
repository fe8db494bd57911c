package handoffdoc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
)

// sectionTitles is the fixed, numbered order sections must appear in on
// disk (spec §6). Encoding is canonical: this order never varies.
var sectionTitles = []string{
	"ORIGINAL REQUEST",
	"TASK DESCRIPTION & STATUS",
	"DECISIONS MADE",
	"REJECTED ALTERNATIVES",
	"WORK COMPLETED",
	"WORK IN PROGRESS",
	"TODO LIST",
	"TOOL STATE",
	"ASSUMPTIONS",
	"CONSTRAINTS",
	"DEPENDENCIES",
	"ERROR HISTORY",
	"PERFORMANCE",
	"TESTING",
	"REFERENCES",
	"METADATA",
	"SIGNATURE",
}

const noneMarker = "(none)"

// header mirrors the YAML front-matter block in spec §6, field order fixed
// by struct declaration order so encoding is deterministic.
type header struct {
	SchemaVersion        string       `yaml:"schema_version"`
	HandoffID            string       `yaml:"handoff_id"`
	TraceID              string       `yaml:"trace_id"`
	TaskID               string       `yaml:"task_id"`
	UserID               string       `yaml:"user_id"`
	ProjectID            string       `yaml:"project_id"`
	PredecessorHandoffID *string      `yaml:"predecessor_handoff_id"`
	SourceAgent          SourceAgent  `yaml:"source_agent"`
	TokenUsage           headerUsage  `yaml:"token_usage"`
	TaskProgress         headerTaskProgress `yaml:"task_progress"`
	Degraded             bool         `yaml:"degraded"`
}

type headerUsage struct {
	Total           int     `yaml:"total"`
	Input           int     `yaml:"input"`
	Output          int     `yaml:"output"`
	CacheRead       int     `yaml:"cache_read"`
	CacheCreate     int     `yaml:"cache_create"`
	UsagePercentage float64 `yaml:"usage_percentage"`
}

type headerTaskProgress struct {
	CurrentPhase         string     `yaml:"current_phase"`
	CompletionPercentage int        `yaml:"completion_percentage"`
	TaskStatus           TaskStatus `yaml:"task_status"`
}

// Encode renders doc into the canonical on-disk text form: a YAML
// front-matter header followed by 17 fixed-order, numbered sections. Two
// decode-encode round trips yield byte-identical output.
func Encode(doc *Document) ([]byte, error) {
	var predecessor *string
	if doc.PredecessorHandoffID != "" {
		predecessor = &doc.PredecessorHandoffID
	}

	h := header{
		SchemaVersion:        doc.SchemaVersion,
		HandoffID:            doc.HandoffID,
		TraceID:              doc.TraceID,
		TaskID:               doc.TaskID,
		UserID:               doc.UserID,
		ProjectID:            doc.ProjectID,
		PredecessorHandoffID: predecessor,
		SourceAgent:          doc.SourceAgent,
		TokenUsage: headerUsage{
			Total:           doc.TokenUsage.Total,
			Input:           doc.TokenUsage.Input,
			Output:          doc.TokenUsage.Output,
			CacheRead:       doc.TokenUsage.CacheRead,
			CacheCreate:     doc.TokenUsage.CacheCreate,
			UsagePercentage: doc.TokenUsage.UsagePercentage,
		},
		TaskProgress: headerTaskProgress{
			CurrentPhase:         doc.CurrentPhase,
			CompletionPercentage: doc.CompletionPercentage,
			TaskStatus:           doc.TaskStatus,
		},
		Degraded: doc.Degraded,
	}

	headerBytes, err := yaml.Marshal(&h)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal handoff header")
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(normalizeLF(headerBytes))
	b.WriteString("---\n")

	sections := make([]string, len(sectionTitles))
	sections[0] = textOrNone(doc.OriginalRequest)
	sections[1] = textOrNone(doc.TaskDescription)
	sections[2] = yamlListOrNone(doc.Decisions)
	sections[3] = yamlListOrNone(doc.RejectedAlternatives)
	sections[4] = yamlListOrNone(doc.WorkCompleted)
	sections[5] = sortedMapOrNone(doc.WorkInProgress)
	sections[6] = renderTodoList(doc.TodoList)
	sections[7] = sortedMapOrNone(doc.ToolState)
	sections[8] = bulletsOrNone(doc.Assumptions)
	sections[9] = bulletsOrNone(doc.Constraints)
	sections[10] = yamlValueOrNone(doc.Dependencies, len(doc.Dependencies.Upstream)+len(doc.Dependencies.Downstream) == 0)
	sections[11] = yamlListOrNone(doc.ErrorHistory)
	sections[12] = textOrNone(doc.Performance)
	sections[13] = textOrNone(doc.Testing)
	sections[14] = bulletsOrNone(doc.References)
	sections[15] = sortedMapOrNone(doc.Metadata)
	sections[16] = textOrNone(doc.Signature)

	for i, title := range sectionTitles {
		fmt.Fprintf(&b, "# SECTION %d: %s\n", i+1, title)
		b.WriteString(sections[i])
		if !strings.HasSuffix(sections[i], "\n") {
			b.WriteString("\n")
		}
	}

	return []byte(b.String()), nil
}

// Decode parses the canonical text form back into a Document, verifying
// schema_version compatibility and referential integrity between TODO
// items and the decisions they may reference.
func Decode(data []byte) (*Document, error) {
	text := string(normalizeLF(data))
	parts := strings.SplitN(text, "---\n", 3)
	if len(parts) < 3 {
		return nil, lifecycleerrors.Wrap(lifecycleerrors.KindMalformedHandoff, nil, "handoff document missing front-matter delimiters")
	}

	var h header
	if err := yaml.Unmarshal([]byte(parts[1]), &h); err != nil {
		return nil, lifecycleerrors.Wrap(lifecycleerrors.KindMalformedHandoff, err, "failed to parse handoff header")
	}

	if err := checkSchemaVersion(h.SchemaVersion); err != nil {
		return nil, err
	}

	doc := &Document{
		SchemaVersion: h.SchemaVersion,
		HandoffID:     h.HandoffID,
		TraceID:       h.TraceID,
		TaskID:        h.TaskID,
		UserID:        h.UserID,
		ProjectID:     h.ProjectID,
		SourceAgent:   h.SourceAgent,
		TokenUsage: TokenUsageSummary{
			Total:           h.TokenUsage.Total,
			Input:           h.TokenUsage.Input,
			Output:          h.TokenUsage.Output,
			CacheRead:       h.TokenUsage.CacheRead,
			CacheCreate:     h.TokenUsage.CacheCreate,
			UsagePercentage: h.TokenUsage.UsagePercentage,
		},
		CurrentPhase:         h.TaskProgress.CurrentPhase,
		CompletionPercentage: h.TaskProgress.CompletionPercentage,
		TaskStatus:           h.TaskProgress.TaskStatus,
		Degraded:             h.Degraded,
	}
	if h.PredecessorHandoffID != nil {
		doc.PredecessorHandoffID = *h.PredecessorHandoffID
	}

	sections, err := splitSections(parts[2])
	if err != nil {
		return nil, err
	}
	if len(sections) != len(sectionTitles) {
		return nil, lifecycleerrors.Wrap(lifecycleerrors.KindMalformedHandoff, nil,
			fmt.Sprintf("expected %d sections, found %d", len(sectionTitles), len(sections)))
	}

	doc.OriginalRequest = textFromNone(sections[0])
	doc.TaskDescription = textFromNone(sections[1])

	if err := unmarshalListSection(sections[2], &doc.Decisions); err != nil {
		return nil, errors.Wrap(err, "failed to parse decisions")
	}
	if err := unmarshalListSection(sections[3], &doc.RejectedAlternatives); err != nil {
		return nil, errors.Wrap(err, "failed to parse rejected alternatives")
	}
	if err := unmarshalListSection(sections[4], &doc.WorkCompleted); err != nil {
		return nil, errors.Wrap(err, "failed to parse work completed")
	}
	doc.WorkInProgress, err = parseSortedMap(sections[5])
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse work in progress")
	}
	doc.TodoList, err = parseTodoList(sections[6])
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse todo list")
	}
	doc.ToolState, err = parseSortedMap(sections[7])
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse tool state")
	}
	doc.Assumptions = parseBullets(sections[8])
	doc.Constraints = parseBullets(sections[9])
	if err := unmarshalValueSection(sections[10], &doc.Dependencies); err != nil {
		return nil, errors.Wrap(err, "failed to parse dependencies")
	}
	if err := unmarshalListSection(sections[11], &doc.ErrorHistory); err != nil {
		return nil, errors.Wrap(err, "failed to parse error history")
	}
	doc.Performance = textFromNone(sections[12])
	doc.Testing = textFromNone(sections[13])
	doc.References = parseBullets(sections[14])
	doc.Metadata, err = parseSortedMap(sections[15])
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse metadata")
	}
	doc.Signature = textFromNone(sections[16])

	if errs := validateReferentialIntegrity(doc); len(errs) > 0 {
		return nil, lifecycleerrors.Wrap(lifecycleerrors.KindMalformedHandoff, errs[0], "handoff document failed referential integrity check")
	}

	return doc, nil
}

func checkSchemaVersion(version string) error {
	if version == "" {
		return lifecycleerrors.New(lifecycleerrors.KindMalformedHandoff, "handoff document missing schema_version")
	}
	major := strings.SplitN(version, ".", 2)[0]
	currentMajor := strings.SplitN(SchemaVersion, ".", 2)[0]
	if major != currentMajor {
		return lifecycleerrors.New(lifecycleerrors.KindMalformedHandoff,
			fmt.Sprintf("handoff schema_version %q is major-incompatible with %q", version, SchemaVersion))
	}
	return nil
}

func normalizeLF(b []byte) []byte {
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return []byte(s)
}

func textOrNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return noneMarker + "\n"
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

func textFromNone(s string) string {
	if strings.TrimSpace(s) == noneMarker {
		return ""
	}
	return strings.TrimRight(s, "\n")
}

func yamlListOrNone[T any](items []T) string {
	if len(items) == 0 {
		return noneMarker + "\n"
	}
	out, err := yaml.Marshal(items)
	if err != nil {
		return noneMarker + "\n"
	}
	return string(normalizeLF(out))
}

func yamlValueOrNone(v any, empty bool) string {
	if empty {
		return noneMarker + "\n"
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return noneMarker + "\n"
	}
	return string(normalizeLF(out))
}

func unmarshalListSection[T any](section string, out *[]T) error {
	if strings.TrimSpace(section) == noneMarker {
		*out = nil
		return nil
	}
	return yaml.Unmarshal([]byte(section), out)
}

func unmarshalValueSection(section string, out any) error {
	if strings.TrimSpace(section) == noneMarker {
		return nil
	}
	return yaml.Unmarshal([]byte(section), out)
}

func sortedMapOrNone(m map[string]string) string {
	if len(m) == 0 {
		return noneMarker + "\n"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, m[k])
	}
	return b.String()
}

var mapLineRe = regexp.MustCompile(`^([^:\n]+): (.*)$`)

func parseSortedMap(section string) (map[string]string, error) {
	if strings.TrimSpace(section) == noneMarker {
		return nil, nil
	}
	out := make(map[string]string)
	for _, line := range strings.Split(strings.TrimRight(section, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := mapLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.Errorf("malformed key/value line: %q", line)
		}
		out[m[1]] = m[2]
	}
	return out, nil
}

func bulletsOrNone(items []string) string {
	if len(items) == 0 {
		return noneMarker + "\n"
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

func parseBullets(section string) []string {
	if strings.TrimSpace(section) == noneMarker {
		return nil
	}
	var out []string
	for _, line := range strings.Split(strings.TrimRight(section, "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(line, "- "))
	}
	return out
}

var todoLineRe = regexp.MustCompile(`^- \[(P[0-3])\] (.*?)(?: \(acceptance: (.*)\))?$`)

func renderTodoList(items []TodoItem) string {
	if len(items) == 0 {
		return noneMarker + "\n"
	}
	var b strings.Builder
	for _, item := range items {
		if item.AcceptanceCriteria != "" {
			fmt.Fprintf(&b, "- [%s] %s (acceptance: %s)\n", item.Priority, item.Description, item.AcceptanceCriteria)
		} else {
			fmt.Fprintf(&b, "- [%s] %s\n", item.Priority, item.Description)
		}
	}
	return b.String()
}

func parseTodoList(section string) ([]TodoItem, error) {
	if strings.TrimSpace(section) == noneMarker {
		return nil, nil
	}
	var out []TodoItem
	for _, line := range strings.Split(strings.TrimRight(section, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := todoLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.Errorf("malformed todo line: %q", line)
		}
		out = append(out, TodoItem{
			Priority:           Priority(m[1]),
			Description:        m[2],
			AcceptanceCriteria: m[3],
		})
	}
	return out, nil
}

func splitSections(body string) ([]string, error) {
	headerRe := regexp.MustCompile(`(?m)^# SECTION (\d+): .*$`)
	locs := headerRe.FindAllStringIndex(body, -1)
	if len(locs) == 0 {
		return nil, lifecycleerrors.New(lifecycleerrors.KindMalformedHandoff, "no sections found in handoff body")
	}

	var out []string
	for i, loc := range locs {
		lineEnd := strings.IndexByte(body[loc[0]:], '\n')
		contentStart := loc[0] + lineEnd + 1
		contentEnd := len(body)
		if i+1 < len(locs) {
			contentEnd = locs[i+1][0]
		}
		out = append(out, body[contentStart:contentEnd])
	}
	return out, nil
}

// validateReferentialIntegrity checks that every decision id referenced by
// content elsewhere in the document actually exists in Decisions. Decisions
// are referenced by id pattern (e.g. "D1") inside todo descriptions or
// acceptance criteria.
func validateReferentialIntegrity(doc *Document) []error {
	known := make(map[string]bool, len(doc.Decisions))
	for _, d := range doc.Decisions {
		known[d.ID] = true
	}

	refRe := regexp.MustCompile(`\bD\d+\b`)
	var errs []error
	check := func(text string) {
		for _, ref := range refRe.FindAllString(text, -1) {
			if !known[ref] {
				errs = append(errs, errors.Errorf("todo references unknown decision %q", ref))
			}
		}
	}
	for _, t := range doc.TodoList {
		check(t.Description)
		check(t.AcceptanceCriteria)
	}
	return errs
}
