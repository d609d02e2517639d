package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ehr/dashboard/internal/platform/fhir"
)

// MirrorSchema creates the table the mirror reads from. Rows hold the raw
// FHIR JSON of each resource.
const MirrorSchema = `CREATE TABLE IF NOT EXISTS fhir_resource_mirror (
    resource_type VARCHAR(64) NOT NULL,
    id            VARCHAR(128) NOT NULL,
    content       JSONB NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (resource_type, id)
)`

// Querier is the subset of pgxpool.Pool the mirror needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Mirror serves FHIR reads out of a PostgreSQL copy of an upstream server.
// It implements fhir.Source and rejects writes, like the public test servers
// it stands in for.
type Mirror struct {
	q Querier
}

var _ fhir.Source = (*Mirror)(nil)

func NewMirror(q Querier) *Mirror {
	return &Mirror{q: q}
}

// EnsureSchema creates the mirror table if it does not exist.
func (m *Mirror) EnsureSchema(ctx context.Context) error {
	if _, err := m.q.Exec(ctx, MirrorSchema); err != nil {
		return fmt.Errorf("create fhir_resource_mirror: %w", err)
	}
	return nil
}

// Upsert stores or replaces one resource.
func (m *Mirror) Upsert(ctx context.Context, r fhir.TypedResource) error {
	if r.LogicalID() == "" {
		return fmt.Errorf("upsert %s: resource has no id", r.ResourceName())
	}
	content, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", r.ResourceName(), r.LogicalID(), err)
	}
	_, err = m.q.Exec(ctx, `INSERT INTO fhir_resource_mirror (resource_type, id, content)
VALUES ($1, $2, $3)
ON CONFLICT (resource_type, id) DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()`,
		r.ResourceName(), r.LogicalID(), content)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", r.ResourceName(), r.LogicalID(), err)
	}
	return nil
}

// Import upserts every supported resource of a bundle and returns how many
// were stored.
func (m *Mirror) Import(ctx context.Context, b *fhir.Bundle) (int, error) {
	n := 0
	for _, r := range b.Resources() {
		if err := m.Upsert(ctx, r); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (m *Mirror) Search(ctx context.Context, resourceType string, params url.Values) (*fhir.Bundle, error) {
	query, args := buildSearchQuery(resourceType, fhir.CleanParams(params))
	rows, err := m.q.Query(ctx, query, args...)
	if err != nil {
		return nil, &fhir.UpstreamError{Op: "search", ResourceType: resourceType, Err: err}
	}
	defer rows.Close()

	var (
		resources []fhir.TypedResource
		total     int64
	)
	for rows.Next() {
		var content []byte
		if err := rows.Scan(&content, &total); err != nil {
			return nil, &fhir.UpstreamError{Op: "search", ResourceType: resourceType, Err: err}
		}
		r, err := fhir.DecodeResource(content)
		if err != nil {
			continue
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &fhir.UpstreamError{Op: "search", ResourceType: resourceType, Err: err}
	}

	if strings.HasSuffix(params.Get("_include"), ":patient") {
		included, err := m.includePatients(ctx, resources)
		if err != nil {
			return nil, err
		}
		resources = append(resources, included...)
	}

	return fhir.NewSearchBundle(resources, int(total)), nil
}

func (m *Mirror) Read(ctx context.Context, resourceType, id string) (fhir.TypedResource, error) {
	var content []byte
	err := m.q.QueryRow(ctx,
		`SELECT content FROM fhir_resource_mirror WHERE resource_type = $1 AND id = $2`,
		resourceType, id).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &fhir.UpstreamError{Op: "read", ResourceType: resourceType, StatusCode: 404, Message: id + " not in mirror"}
	}
	if err != nil {
		return nil, &fhir.UpstreamError{Op: "read", ResourceType: resourceType, Err: err}
	}
	r, err := fhir.DecodeResource(content)
	if err != nil {
		return nil, &fhir.UpstreamError{Op: "read", ResourceType: resourceType, Message: "corrupt mirror row", Err: err}
	}
	return r, nil
}

func (m *Mirror) Create(_ context.Context, r fhir.TypedResource) (fhir.TypedResource, error) {
	return nil, fmt.Errorf("create %s: %w", r.ResourceName(), fhir.ErrReadOnly)
}

func (m *Mirror) Update(_ context.Context, r fhir.TypedResource) (fhir.TypedResource, error) {
	return nil, fmt.Errorf("update %s/%s: %w", r.ResourceName(), r.LogicalID(), fhir.ErrReadOnly)
}

func (m *Mirror) Delete(_ context.Context, resourceType, id string) error {
	return fmt.Errorf("delete %s/%s: %w", resourceType, id, fhir.ErrReadOnly)
}

func (m *Mirror) includePatients(ctx context.Context, resources []fhir.TypedResource) ([]fhir.TypedResource, error) {
	ids := patientIDs(resources)
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := m.q.Query(ctx,
		`SELECT content FROM fhir_resource_mirror WHERE resource_type = 'Patient' AND id = ANY($1)`, ids)
	if err != nil {
		return nil, &fhir.UpstreamError{Op: "include", ResourceType: "Patient", Err: err}
	}
	defer rows.Close()

	var out []fhir.TypedResource
	for rows.Next() {
		var content []byte
		if err := rows.Scan(&content); err != nil {
			return nil, &fhir.UpstreamError{Op: "include", ResourceType: "Patient", Err: err}
		}
		if r, err := fhir.DecodeResource(content); err == nil {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

// patientIDs collects the distinct Patient ids the resources point at.
func patientIDs(resources []fhir.TypedResource) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(ref *fhir.Reference) {
		if id := fhir.ReferenceIDOf(ref, "Patient"); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, r := range resources {
		switch v := r.(type) {
		case *fhir.Observation:
			add(v.Subject)
		case *fhir.DocumentReference:
			add(v.Subject)
		case *fhir.MedicationRequest:
			add(v.Subject)
		case *fhir.ChargeItem:
			add(v.Subject)
		case *fhir.Coverage:
			add(v.Beneficiary)
		case *fhir.Account:
			for i := range v.Subject {
				add(&v.Subject[i])
			}
		case *fhir.Appointment:
			for _, p := range v.Participant {
				add(p.Actor)
			}
		}
	}
	return ids
}

// buildSearchQuery translates the FHIR search parameters the dashboard sends
// into SQL over the mirror table. Parameters it does not understand are
// ignored, as a lenient FHIR server would.
func buildSearchQuery(resourceType string, params url.Values) (string, []any) {
	args := []any{resourceType}
	where := []string{"resource_type = $1"}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if id := params.Get("_id"); id != "" {
		where = append(where, "id = "+arg(id))
	}
	if name := strings.TrimSpace(params.Get("name")); name != "" {
		p := arg("%" + name + "%")
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(COALESCE(content->'name', '[]'::jsonb)) n WHERE n->>'family' ILIKE %s OR (n->'given')::text ILIKE %s)", p, p))
	}
	if active := params.Get("active"); active != "" {
		where = append(where, "COALESCE(content->>'active', 'true') = "+arg(active))
	}
	for _, key := range []string{"patient", "beneficiary", "subject"} {
		if v := params.Get(key); v != "" {
			where = append(where, referenceClause(arg(fhir.FormatReference("Patient", lastSegment(v)))))
		}
	}
	for _, key := range []string{"practitioner", "actor"} {
		if v := params.Get(key); v != "" {
			where = append(where, referenceClause(arg(fhir.FormatReference("Practitioner", lastSegment(v)))))
		}
	}
	if status := params.Get("status"); status != "" {
		where = append(where, "content->>'status' = ANY("+arg(strings.Split(status, ","))+")")
	}
	if category := params.Get("category"); category != "" {
		p := arg(category)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(COALESCE(content->'category', '[]'::jsonb)) c, jsonb_array_elements(COALESCE(c->'coding', '[]'::jsonb)) cd WHERE cd->>'code' = %s OR c->>'text' = %s)", p, p))
	}
	const dateExpr = "COALESCE(content->>'start', content->>'date', content->>'effectiveDateTime', content->>'authoredOn', content->'period'->>'start')"
	for _, d := range params["date"] {
		switch {
		case strings.HasPrefix(d, "ge"):
			where = append(where, dateExpr+" >= "+arg(d[2:]))
		case strings.HasPrefix(d, "le"):
			p := arg(d[2:])
			where = append(where, fmt.Sprintf("LEFT(%s, LENGTH(%s)) <= %s", dateExpr, p, p))
		case strings.HasPrefix(d, "eq"):
			p := arg(d[2:])
			where = append(where, fmt.Sprintf("LEFT(%s, LENGTH(%s)) = %s", dateExpr, p, p))
		case d != "":
			p := arg(d)
			where = append(where, fmt.Sprintf("LEFT(%s, LENGTH(%s)) = %s", dateExpr, p, p))
		}
	}

	order := "id"
	switch params.Get("_sort") {
	case "family":
		order = "content->'name'->0->>'family' NULLS LAST, id"
	case "date", "-date":
		order = dateExpr
		if strings.HasPrefix(params.Get("_sort"), "-") {
			order += " DESC"
		}
		order += ", id"
	}

	limit, _ := strconv.Atoi(params.Get("_count"))
	if limit <= 0 {
		limit = fhir.DefaultSearchCount
	}
	offset, _ := strconv.Atoi(params.Get("_getpagesoffset"))
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT content, COUNT(*) OVER() FROM fhir_resource_mirror WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		strings.Join(where, " AND "), order, arg(limit), arg(offset))
	return query, args
}

// referenceClause matches resources pointing at ref through subject,
// beneficiary, an Account subject list or an Appointment participant.
func referenceClause(p string) string {
	return fmt.Sprintf("(content->'subject'->>'reference' = %[1]s"+
		" OR content->'beneficiary'->>'reference' = %[1]s"+
		" OR content->'subject' @> jsonb_build_array(jsonb_build_object('reference', %[1]s::text))"+
		" OR content->'participant' @> jsonb_build_array(jsonb_build_object('actor', jsonb_build_object('reference', %[1]s::text))))", p)
}

func lastSegment(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
