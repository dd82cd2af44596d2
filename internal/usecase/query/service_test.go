package query

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain"
	domquery "github.com/kestrel-data/nlmongo/internal/domain/query"
	domschema "github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
	"github.com/kestrel-data/nlmongo/internal/safety"
)

type mockSchemas struct {
	snap domschema.Snapshot
	rels []inference.Relationship
	err  error
}

func (m *mockSchemas) Describe(context.Context) (domschema.Snapshot, []inference.Relationship, error) {
	return m.snap, m.rels, m.err
}

type mockTranslator struct {
	result domquery.Proposed
	err    error

	gotSnap domschema.Snapshot
	gotRels []inference.Relationship
}

func (m *mockTranslator) Translate(
	_ context.Context, _ string, snap domschema.Snapshot, rels []inference.Relationship,
) (domquery.Proposed, error) {
	m.gotSnap = snap
	m.gotRels = rels
	return m.result, m.err
}

type mockExecutor struct {
	findResults []map[string]any
	aggResults  []map[string]any
	err         error

	findCalls int
	aggCalls  int
	lastLimit int64
}

func (m *mockExecutor) Find(
	_ context.Context, _ string, _, _, _ domquery.Node, limit int64,
) ([]map[string]any, error) {
	m.findCalls++
	m.lastLimit = limit
	return m.findResults, m.err
}

func (m *mockExecutor) Aggregate(context.Context, string, domquery.Node) ([]map[string]any, error) {
	m.aggCalls++
	return m.aggResults, m.err
}

func mustParse(t *testing.T, raw string) domquery.Node {
	t.Helper()
	n, err := domquery.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return n
}

func findProposal(t *testing.T, filter string) domquery.Proposed {
	t.Helper()
	return domquery.Proposed{
		Type:       domquery.TypeFind,
		Collection: "users",
		Query:      mustParse(t, filter),
	}
}

func newService(tr *mockTranslator, ex *mockExecutor) *Service {
	return New(&mockSchemas{snap: domschema.NewSnapshot(nil)}, tr, ex, 0, zap.NewNop())
}

func TestAsk_FindHappyPath(t *testing.T) {
	ex := &mockExecutor{findResults: []map[string]any{
		{"name": "ada", "age": int64(36)},
	}}
	svc := newService(&mockTranslator{result: findProposal(t, `{"age": {"$gt": 30}}`)}, ex)

	res, err := svc.Ask(context.Background(), "users over 30")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ex.findCalls != 1 || ex.aggCalls != 0 {
		t.Errorf("calls = find %d, agg %d", ex.findCalls, ex.aggCalls)
	}
	if ex.lastLimit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", ex.lastLimit, DefaultLimit)
	}
	if res.DocumentCount != 1 {
		t.Errorf("count = %d", res.DocumentCount)
	}
	if !reflect.DeepEqual(res.Fields, []string{"age", "name"}) {
		t.Errorf("fields = %v", res.Fields)
	}
}

func TestAsk_ExplicitLimitKept(t *testing.T) {
	proposed := findProposal(t, `{}`)
	proposed.Limit = 7
	ex := &mockExecutor{}
	svc := newService(&mockTranslator{result: proposed}, ex)

	if _, err := svc.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ex.lastLimit != 7 {
		t.Errorf("limit = %d, want 7", ex.lastLimit)
	}
}

func TestAsk_AggregateRoutesToPipeline(t *testing.T) {
	proposed := domquery.Proposed{
		Type:       domquery.TypeAggregate,
		Collection: "users",
		Query:      mustParse(t, `[{"$group": {"_id": "$country", "count": {"$sum": 1}}}]`),
	}
	ex := &mockExecutor{aggResults: []map[string]any{{"_id": "de", "count": int64(2)}}}
	svc := newService(&mockTranslator{result: proposed}, ex)

	res, err := svc.Ask(context.Background(), "count users by country")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ex.aggCalls != 1 || ex.findCalls != 0 {
		t.Errorf("calls = find %d, agg %d", ex.findCalls, ex.aggCalls)
	}
	if res.DocumentCount != 1 {
		t.Errorf("count = %d", res.DocumentCount)
	}
}

func TestAsk_DangerousTranslationNeverExecutes(t *testing.T) {
	ex := &mockExecutor{}
	svc := newService(&mockTranslator{result: findProposal(t, `{"$where": "this.a == 1"}`)}, ex)

	_, err := svc.Ask(context.Background(), "q")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if cat, ok := safety.CategoryOf(err); !ok || cat != safety.DangerousOperator {
		t.Errorf("category = %v (%v)", cat, ok)
	}
	if ex.findCalls+ex.aggCalls != 0 {
		t.Error("rejected query reached the executor")
	}
}

func TestAsk_BadCollectionNameRejected(t *testing.T) {
	proposed := findProposal(t, `{}`)
	proposed.Collection = "system.users"
	ex := &mockExecutor{}
	svc := newService(&mockTranslator{result: proposed}, ex)

	_, err := svc.Ask(context.Background(), "q")
	if cat, ok := safety.CategoryOf(err); !ok || cat != safety.InvalidName {
		t.Errorf("category = %v (%v), err = %v", cat, ok, err)
	}
	if ex.findCalls+ex.aggCalls != 0 {
		t.Error("rejected query reached the executor")
	}
}

func TestAsk_BadSortRejected(t *testing.T) {
	proposed := findProposal(t, `{}`)
	proposed.Sort = mustParse(t, `{"age": 2}`)
	svc := newService(&mockTranslator{result: proposed}, &mockExecutor{})

	_, err := svc.Ask(context.Background(), "q")
	if cat, ok := safety.CategoryOf(err); !ok || cat != safety.InvalidValue {
		t.Errorf("category = %v (%v), err = %v", cat, ok, err)
	}
}

func TestAsk_TargetCollectionScopesSchema(t *testing.T) {
	snap := domschema.NewSnapshot([]domschema.Collection{
		domschema.NewCollection("users", nil, 3, nil),
		domschema.NewCollection("orders", nil, 5, nil),
	})
	rels := []inference.Relationship{
		{SourceCollection: "users", SourceField: "id", TargetCollection: "orders", TargetField: "user_id"},
		{SourceCollection: "orders", SourceField: "product_id", TargetCollection: "products", TargetField: "product_id"},
	}
	tr := &mockTranslator{result: findProposal(t, `{}`)}
	svc := New(&mockSchemas{snap: snap, rels: rels}, tr, &mockExecutor{}, 0, zap.NewNop())

	if _, err := svc.Ask(context.Background(), "q", "users"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if names := tr.gotSnap.Names(); !reflect.DeepEqual(names, []string{"users"}) {
		t.Errorf("translator saw collections %v", names)
	}
	if len(tr.gotRels) != 1 || tr.gotRels[0].TargetCollection != "orders" {
		t.Errorf("translator saw relationships %v", tr.gotRels)
	}
}

func TestAsk_TargetCollectionMissing(t *testing.T) {
	snap := domschema.NewSnapshot([]domschema.Collection{
		domschema.NewCollection("users", nil, 3, nil),
	})
	ex := &mockExecutor{}
	svc := New(&mockSchemas{snap: snap}, &mockTranslator{result: findProposal(t, `{}`)}, ex, 0, zap.NewNop())

	_, err := svc.Ask(context.Background(), "q", "ghosts")
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Errorf("err = %v", err)
	}
	if ex.findCalls+ex.aggCalls != 0 {
		t.Error("query must not execute for an unknown target collection")
	}
}

func TestAsk_TargetCollectionBadName(t *testing.T) {
	svc := newService(&mockTranslator{result: findProposal(t, `{}`)}, &mockExecutor{})

	_, err := svc.Ask(context.Background(), "q", "system.users")
	if cat, ok := safety.CategoryOf(err); !ok || cat != safety.InvalidName {
		t.Errorf("category = %v (%v), err = %v", cat, ok, err)
	}
}

func TestAsk_TranslatorErrorPropagates(t *testing.T) {
	svc := newService(&mockTranslator{err: errors.New("rate limited")}, &mockExecutor{})
	if _, err := svc.Ask(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAsk_SchemaErrorPropagates(t *testing.T) {
	svc := New(&mockSchemas{err: errors.New("down")}, &mockTranslator{}, &mockExecutor{}, 0, zap.NewNop())
	if _, err := svc.Ask(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLookupCollections(t *testing.T) {
	proposed := domquery.Proposed{
		Type:       domquery.TypeAggregate,
		Collection: "users",
		Query: mustParse(t, `[
			{"$match": {"money": {"$gte": 500}}},
			{"$lookup": {"from": "products", "localField": "city", "foreignField": "location", "as": "p"}},
			{"$lookup": {"from": "orders", "localField": "id", "foreignField": "user_id", "as": "o"}},
			{"$lookup": {"from": "products", "localField": "id", "foreignField": "x", "as": "p2"}}
		]`),
	}

	got := lookupCollections(proposed)
	if !reflect.DeepEqual(got, []string{"products", "orders"}) {
		t.Errorf("joined = %v", got)
	}

	if got := lookupCollections(findProposal(t, `{}`)); got != nil {
		t.Errorf("find proposal joined = %v", got)
	}
}
