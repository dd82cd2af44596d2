package safety

import (
	"strings"
	"testing"

	"github.com/kestrel-data/nlmongo/internal/domain/query"
)

func mustParse(t *testing.T, raw string) query.Node {
	t.Helper()
	n, err := query.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return n
}

func wantCategory(t *testing.T, err error, want Category) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s rejection, got nil", want)
	}
	got, ok := CategoryOf(err)
	if !ok {
		t.Fatalf("error is not a safety.Error: %v", err)
	}
	if got != want {
		t.Fatalf("expected category %s, got %s (%v)", want, got, err)
	}
}

func TestValidateCollectionName(t *testing.T) {
	valid := []string{"users", "Users-2024", "order_items", "a", strings.Repeat("x", 120)}
	for _, name := range valid {
		if err := ValidateCollectionName(name); err != nil {
			t.Errorf("expected %q to be accepted: %v", name, err)
		}
	}

	invalid := []string{
		"",
		strings.Repeat("x", 121),
		"users\x00",
		"system.users",
		"system.indexes",
		"us$ers",
		"$users",
		"users.orders",
		"users collection",
		"naïve",
	}
	for _, name := range invalid {
		err := ValidateCollectionName(name)
		wantCategory(t, err, InvalidName)
	}
}

func TestValidateFieldName(t *testing.T) {
	valid := []string{"name", "address.city", "a.b.c", "_id", "items.0.price"}
	for _, name := range valid {
		if err := ValidateFieldName(name); err != nil {
			t.Errorf("expected %q to be accepted: %v", name, err)
		}
	}

	invalid := []string{"", "a\x00b", "$where", "address.$gt", "a..b", ".leading", "trailing."}
	for _, name := range invalid {
		wantCategory(t, ValidateFieldName(name), InvalidName)
	}
}

func TestValidateFilter_AllowsOperatorsAtAnyDepth(t *testing.T) {
	filters := []string{
		`{}`,
		`{"price":{"$gt":50}}`,
		`{"$and":[{"a":1},{"b":{"$in":[1,2]}}]}`,
		`{"$or":[{"tags":{"$all":["x"]}},{"$nor":[{"c":{"$exists":false}}]}]}`,
		`{"items":{"$elemMatch":{"qty":{"$mod":[4,0]}}}}`,
		`{"$text":{"$search":"coffee"}}`,
		`{"name":{"$regex":"^jo","$options":"i"}}`,
		`{"nested.path":{"$ne":null}}`,
	}
	for _, raw := range filters {
		if err := ValidateFilter(mustParse(t, raw)); err != nil {
			t.Errorf("expected filter %s to be accepted: %v", raw, err)
		}
	}
}

func TestValidateFilter_RejectsWhereAtAnyDepth(t *testing.T) {
	filters := []string{
		`{"$where":"this.a == 1"}`,
		`{"a":{"$where":"code"}}`,
		`{"$and":[{"b":1},{"$where":"code"}]}`,
		`{"$or":[{"c":{"$elemMatch":{"$where":"code"}}}]}`,
	}
	for _, raw := range filters {
		wantCategory(t, ValidateFilter(mustParse(t, raw)), DangerousOperator)
	}
}

func TestValidateFilter_RejectsUnknownOperators(t *testing.T) {
	wantCategory(t, ValidateFilter(mustParse(t, `{"a":{"$expr":1}}`)), UnknownOperator)
	wantCategory(t, ValidateFilter(mustParse(t, `{"$jsonSchema":{}}`)), UnknownOperator)
}

func TestValidateFilter_RejectsBadFieldNames(t *testing.T) {
	wantCategory(t, ValidateFilter(mustParse(t, `{"a.$bad":1}`)), InvalidName)
}

func TestValidateFilter_RejectsNonObject(t *testing.T) {
	wantCategory(t, ValidateFilter(mustParse(t, `[1,2]`)), InvalidStructure)
	wantCategory(t, ValidateFilter(mustParse(t, `"str"`)), InvalidStructure)
}

func TestValidateFilter_DepthGuard(t *testing.T) {
	deep := strings.Repeat(`{"$not":`, MaxDepth+2) + `{"a":1}` + strings.Repeat(`}`, MaxDepth+2)
	wantCategory(t, ValidateFilter(mustParse(t, deep)), InvalidStructure)
}

func TestValidateFilter_RegexGuard(t *testing.T) {
	wantCategory(t,
		ValidateFilter(mustParse(t, `{"a":{"$regex":"`+strings.Repeat("x", 1001)+`"}}`)),
		InvalidValue)
	wantCategory(t,
		ValidateFilter(mustParse(t, `{"a":{"$regex":"(.*)*"}}`)),
		InvalidValue)
	if err := ValidateFilter(mustParse(t, `{"a":{"$regex":"^ab+c$"}}`)); err != nil {
		t.Errorf("benign regex rejected: %v", err)
	}
}

func TestValidateAggregationPipeline_Allowed(t *testing.T) {
	raw := `[
		{"$match":{"price":{"$gte":10}}},
		{"$group":{"_id":"$category","count":{"$sum":1}}},
		{"$sort":{"count":-1}},
		{"$limit":5}
	]`
	if err := ValidateAggregationPipeline(mustParse(t, raw)); err != nil {
		t.Fatalf("expected pipeline to be accepted: %v", err)
	}
}

func TestValidateAggregationPipeline_StageShape(t *testing.T) {
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, `{"$match":{}}`)), InvalidStructure)
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, `[42]`)), InvalidStructure)
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, `[{}]`)), InvalidStructure)
	wantCategory(t,
		ValidateAggregationPipeline(mustParse(t, `[{"$match":{},"$limit":1}]`)),
		InvalidStructure)
}

func TestValidateAggregationPipeline_StageNames(t *testing.T) {
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, `[{"$function":{}}]`)), DangerousOperator)
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, `[{"$accumulator":{}}]`)), DangerousOperator)
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, `[{"match":{}}]`)), UnknownStage)
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, `[{"$currentOp":{}}]`)), UnknownStage)
}

func TestValidateAggregationPipeline_MatchPayloadIsFiltered(t *testing.T) {
	wantCategory(t,
		ValidateAggregationPipeline(mustParse(t, `[{"$match":{"$where":"code"}}]`)),
		DangerousOperator)
	wantCategory(t,
		ValidateAggregationPipeline(mustParse(t, `[{"$match":{"$jsonSchema":{}}}]`)),
		UnknownOperator)
}

func TestValidateAggregationPipeline_MatchAllowsExpr(t *testing.T) {
	pipelines := []string{
		`[{"$match":{"$expr":{"$lte":["$price","$$user_money"]}}}]`,
		`[{"$match":{"$and":[{"status":"open"},{"$expr":{"$gt":["$total","$paid"]}}]}}]`,
	}
	for _, raw := range pipelines {
		if err := ValidateAggregationPipeline(mustParse(t, raw)); err != nil {
			t.Errorf("expected pipeline %s to be accepted: %v", raw, err)
		}
	}
}

func TestValidateAggregationPipeline_ExprCannotExecuteCode(t *testing.T) {
	wantCategory(t,
		ValidateAggregationPipeline(
			mustParse(t, `[{"$match":{"$expr":{"$function":{"body":"code"}}}}]`)),
		DangerousOperator)
	wantCategory(t,
		ValidateAggregationPipeline(
			mustParse(t, `[{"$match":{"$expr":{"$cond":[{"$where":"code"},1,2]}}}]`)),
		DangerousOperator)
}

func TestValidateAggregationPipeline_CrossCollectionJoin(t *testing.T) {
	// The canonical affordability join: $lookup with let bindings and a
	// sub-pipeline mixing $expr matches with plain filter matches.
	raw := `[
		{"$match":{"money":{"$gte":500}}},
		{"$lookup":{
			"from":"products",
			"let":{"user_money":"$money"},
			"pipeline":[
				{"$match":{"$expr":{"$lte":["$price","$$user_money"]}}},
				{"$match":{"price":{"$gte":500}}}
			],
			"as":"affordable_products"
		}},
		{"$match":{"affordable_products":{"$ne":[]}}}
	]`
	if err := ValidateAggregationPipeline(mustParse(t, raw)); err != nil {
		t.Fatalf("expected join pipeline to be accepted: %v", err)
	}
}

func TestValidateLookup_EqualityForm(t *testing.T) {
	raw := `[{"$lookup":{"from":"products","localField":"product_id","foreignField":"id","as":"product"}}]`
	if err := ValidateAggregationPipeline(mustParse(t, raw)); err != nil {
		t.Fatalf("expected lookup to be accepted: %v", err)
	}
}

func TestValidateLookup_PipelineForm(t *testing.T) {
	raw := `[{"$lookup":{
		"from":"products",
		"let":{"user_money":"$money"},
		"pipeline":[{"$match":{"price":{"$gte":500}}}],
		"as":"affordable"
	}}]`
	if err := ValidateAggregationPipeline(mustParse(t, raw)); err != nil {
		t.Fatalf("expected pipeline lookup to be accepted: %v", err)
	}
}

func TestValidateLookup_SystemNamespaceAlwaysRejected(t *testing.T) {
	raw := `[{"$lookup":{"from":"system.users","localField":"a","foreignField":"b","as":"x"}}]`
	err := ValidateAggregationPipeline(mustParse(t, raw))
	wantCategory(t, err, InvalidName)
	if !strings.Contains(err.Error(), "reserved") {
		t.Errorf("rejection should cite the reserved namespace: %v", err)
	}
}

func TestValidateLookup_MissingJoinSpec(t *testing.T) {
	raw := `[{"$lookup":{"from":"products","as":"x"}}]`
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, raw)), MissingJoinSpec)
}

func TestValidateLookup_MissingFromOrAs(t *testing.T) {
	wantCategory(t,
		ValidateAggregationPipeline(mustParse(t, `[{"$lookup":{"as":"x","localField":"a"}}]`)),
		InvalidStructure)
	wantCategory(t,
		ValidateAggregationPipeline(mustParse(t, `[{"$lookup":{"from":"products","localField":"a"}}]`)),
		InvalidStructure)
}

func TestValidateLookup_NestedPipelineIsValidated(t *testing.T) {
	raw := `[{"$lookup":{
		"from":"products",
		"pipeline":[{"$function":{}}],
		"as":"x"
	}}]`
	wantCategory(t, ValidateAggregationPipeline(mustParse(t, raw)), DangerousOperator)
}

func TestValidateLookup_Idempotent(t *testing.T) {
	node := mustParse(t, `[{"$lookup":{"from":"products","localField":"a","foreignField":"b","as":"x"}}]`)
	if err := ValidateAggregationPipeline(node); err != nil {
		t.Fatalf("first validation: %v", err)
	}
	if err := ValidateAggregationPipeline(node); err != nil {
		t.Fatalf("second validation differs: %v", err)
	}
}

func TestValidateSortSpecification(t *testing.T) {
	if err := ValidateSortSpecification(mustParse(t, `{"price":-1,"name":1}`)); err != nil {
		t.Fatalf("expected sort to be accepted: %v", err)
	}
	if err := ValidateSortSpecification(mustParse(t, `{"price":-1.0,"name":1.0}`)); err != nil {
		t.Fatalf("expected float-literal directions to be accepted: %v", err)
	}
	wantCategory(t, ValidateSortSpecification(mustParse(t, `{"price":2}`)), InvalidValue)
	wantCategory(t, ValidateSortSpecification(mustParse(t, `{"price":"asc"}`)), InvalidValue)
	wantCategory(t, ValidateSortSpecification(mustParse(t, `{"price":1.5}`)), InvalidValue)
	wantCategory(t, ValidateSortSpecification(mustParse(t, `{"$bad":1}`)), InvalidName)
	wantCategory(t, ValidateSortSpecification(mustParse(t, `[1]`)), InvalidStructure)
}

func TestValidateProjection(t *testing.T) {
	if err := ValidateProjection(mustParse(t, `{"name":1,"_id":0,"active":true,"x":false}`)); err != nil {
		t.Fatalf("expected projection to be accepted: %v", err)
	}
	if err := ValidateProjection(mustParse(t, `{"name":1.0,"_id":0.0}`)); err != nil {
		t.Fatalf("expected float-literal flags to be accepted: %v", err)
	}
	wantCategory(t, ValidateProjection(mustParse(t, `{"name":2}`)), InvalidValue)
	wantCategory(t, ValidateProjection(mustParse(t, `{"name":"yes"}`)), InvalidValue)
	wantCategory(t, ValidateProjection(mustParse(t, `{"$bad":1}`)), InvalidName)
}
