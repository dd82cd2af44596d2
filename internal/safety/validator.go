// Package safety gates untrusted MongoDB queries before execution. Every
// filter, sort spec, projection, and aggregation pipeline proposed by a
// translator or an API caller passes through these validators; anything not
// explicitly allow-listed is rejected. Validation is fail-closed and
// all-or-nothing: the first violation aborts with a typed Error and nothing
// partially validated ever executes.
//
// All validators are pure functions over immutable query.Node trees. They
// hold no state and are safe for concurrent use.
package safety

import (
	"math"
	"regexp"
	"strings"

	"github.com/kestrel-data/nlmongo/internal/domain/query"
)

// MaxCollectionNameLen mirrors the server-side collection name limit.
const MaxCollectionNameLen = 120

// MaxDepth bounds recursion over adversarially nested filters and pipelines.
const MaxDepth = 48

// allowedOperators is the fixed comparison/logical operator allow-list for
// filter documents. Operators are legal at any nesting depth.
var allowedOperators = map[string]struct{}{
	"$eq": {}, "$ne": {}, "$gt": {}, "$gte": {}, "$lt": {}, "$lte": {},
	"$in": {}, "$nin": {}, "$and": {}, "$or": {}, "$not": {}, "$nor": {},
	"$exists": {}, "$type": {}, "$regex": {}, "$options": {},
	"$all": {}, "$elemMatch": {}, "$size": {},
	"$mod": {}, "$text": {}, "$search": {},
}

// allowedStages is the fixed aggregation stage allow-list.
var allowedStages = map[string]struct{}{
	"$match": {}, "$group": {}, "$project": {}, "$sort": {}, "$limit": {},
	"$skip": {}, "$unwind": {}, "$lookup": {}, "$addFields": {}, "$count": {},
	"$sortByCount": {}, "$facet": {}, "$bucket": {}, "$bucketAuto": {},
	"$sample": {}, "$replaceRoot": {}, "$out": {}, "$merge": {},
	"$geoNear": {}, "$graphLookup": {}, "$redact": {}, "$replaceWith": {},
	"$set": {}, "$unset": {},
}

// dangerousStages execute arbitrary server-side JavaScript.
var dangerousStages = map[string]struct{}{
	"$function":    {},
	"$accumulator": {},
}

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateCollectionName accepts names of 1..120 characters matching
// ^[A-Za-z0-9_-]+$, without null bytes, a "system." prefix, or "$".
func ValidateCollectionName(name string) error {
	if name == "" {
		return reject(InvalidName, "collection name cannot be empty")
	}
	if len(name) > MaxCollectionNameLen {
		return reject(InvalidName, "collection name is too long (max %d characters)", MaxCollectionNameLen)
	}
	if strings.ContainsRune(name, 0) {
		return reject(InvalidName, "collection name cannot contain null characters")
	}
	if strings.HasPrefix(name, "system.") {
		return reject(InvalidName, "collection name cannot start with 'system.' (reserved namespace)")
	}
	if strings.Contains(name, "$") {
		return reject(InvalidName, "collection name cannot contain '$'")
	}
	if !collectionNamePattern.MatchString(name) {
		return reject(InvalidName, "collection name can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidateFieldName accepts non-empty names without null bytes whose
// dot-separated segments are each non-empty and do not start with "$".
// Dotted paths address nested fields and are allowed.
func ValidateFieldName(name string) error {
	if name == "" {
		return reject(InvalidName, "field name cannot be empty")
	}
	if strings.ContainsRune(name, 0) {
		return reject(InvalidName, "field name cannot contain null characters")
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return reject(InvalidName, "field name parts cannot be empty: %q", name)
		}
		if strings.HasPrefix(part, "$") {
			return reject(InvalidName, "field name part cannot start with '$': %q", part)
		}
	}
	return nil
}

// ValidateFilter recursively validates a filter document. Object keys
// starting with "$" must be allow-listed operators ($where is always
// rejected); other keys must be valid field names. Object and array values
// are recursed into with the same rules.
func ValidateFilter(node query.Node) error {
	if node.Kind() != query.Object {
		return reject(InvalidStructure, "filter must be an object, got %s", node.Kind())
	}
	return validateFilterNode(node, 0)
}

func validateFilterNode(node query.Node, depth int) error {
	if depth > MaxDepth {
		return reject(InvalidStructure, "filter nesting exceeds %d levels", MaxDepth)
	}

	switch node.Kind() {
	case query.Object:
		for _, m := range node.Members() {
			if strings.HasPrefix(m.Key, "$") {
				if m.Key == "$where" {
					return reject(DangerousOperator, "operator not allowed: $where")
				}
				if _, ok := allowedOperators[m.Key]; !ok {
					return reject(UnknownOperator, "unknown or disallowed operator: %s", m.Key)
				}
				if m.Key == "$regex" && m.Value.Kind() == query.String {
					if err := validateRegexPattern(m.Value.Str()); err != nil {
						return err
					}
				}
			} else if err := ValidateFieldName(m.Key); err != nil {
				return err
			}
			if err := validateFilterNode(m.Value, depth+1); err != nil {
				return err
			}
		}
	case query.Array:
		for _, e := range node.Elems() {
			if e.Kind() == query.Object || e.Kind() == query.Array {
				if err := validateFilterNode(e, depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ValidateAggregationPipeline validates a stage array. Each stage must be an
// object with exactly one key; the key must be an allow-listed stage and not
// a code-executing one. $lookup stages are validated in depth; $match stage
// payloads share filter syntax and go through the filter rules, except that
// $expr is legal there and its aggregation expression is walked only for
// code-executing operators.
func ValidateAggregationPipeline(stages query.Node) error {
	return validatePipeline(stages, 0)
}

func validatePipeline(stages query.Node, depth int) error {
	if depth > MaxDepth {
		return reject(InvalidStructure, "pipeline nesting exceeds %d levels", MaxDepth)
	}
	if stages.Kind() != query.Array {
		return reject(InvalidStructure, "aggregation pipeline must be an array, got %s", stages.Kind())
	}

	for _, stage := range stages.Elems() {
		if stage.Kind() != query.Object {
			return reject(InvalidStructure, "each aggregation stage must be an object, got %s", stage.Kind())
		}
		if stage.Len() != 1 {
			return reject(InvalidStructure, "each aggregation stage must have exactly one operator, got %d", stage.Len())
		}

		member := stage.Members()[0]
		name := member.Key

		if _, dangerous := dangerousStages[name]; dangerous {
			return reject(DangerousOperator, "dangerous aggregation stage not allowed: %s", name)
		}
		if !strings.HasPrefix(name, "$") {
			return reject(UnknownStage, "invalid aggregation stage (must start with $): %s", name)
		}
		if _, ok := allowedStages[name]; !ok {
			return reject(UnknownStage, "unknown or disallowed aggregation stage: %s", name)
		}

		switch name {
		case "$lookup":
			if err := validateLookupStage(member.Value, depth+1); err != nil {
				return err
			}
		case "$match":
			if member.Value.Kind() != query.Object {
				return reject(InvalidStructure, "$match stage must be an object, got %s", member.Value.Kind())
			}
			if err := validateMatchNode(member.Value, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateMatchNode applies the filter rules inside a $match stage, where
// $expr additionally admits aggregation expressions.
func validateMatchNode(node query.Node, depth int) error {
	if depth > MaxDepth {
		return reject(InvalidStructure, "filter nesting exceeds %d levels", MaxDepth)
	}

	switch node.Kind() {
	case query.Object:
		for _, m := range node.Members() {
			if strings.HasPrefix(m.Key, "$") {
				if m.Key == "$where" {
					return reject(DangerousOperator, "operator not allowed: $where")
				}
				if m.Key == "$expr" {
					if err := validateExpressionNode(m.Value, depth+1); err != nil {
						return err
					}
					continue
				}
				if _, ok := allowedOperators[m.Key]; !ok {
					return reject(UnknownOperator, "unknown or disallowed operator: %s", m.Key)
				}
				if m.Key == "$regex" && m.Value.Kind() == query.String {
					if err := validateRegexPattern(m.Value.Str()); err != nil {
						return err
					}
				}
			} else if err := ValidateFieldName(m.Key); err != nil {
				return err
			}
			if err := validateMatchNode(m.Value, depth+1); err != nil {
				return err
			}
		}
	case query.Array:
		for _, e := range node.Elems() {
			if e.Kind() == query.Object || e.Kind() == query.Array {
				if err := validateMatchNode(e, depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// validateExpressionNode walks an aggregation expression under $expr. The
// expression operator vocabulary is large and computational, so it is not
// allow-listed; only code-executing operators are rejected.
func validateExpressionNode(node query.Node, depth int) error {
	if depth > MaxDepth {
		return reject(InvalidStructure, "expression nesting exceeds %d levels", MaxDepth)
	}

	switch node.Kind() {
	case query.Object:
		for _, m := range node.Members() {
			if _, dangerous := dangerousStages[m.Key]; dangerous || m.Key == "$where" {
				return reject(DangerousOperator, "operator not allowed in expressions: %s", m.Key)
			}
			if err := validateExpressionNode(m.Value, depth+1); err != nil {
				return err
			}
		}
	case query.Array:
		for _, e := range node.Elems() {
			if err := validateExpressionNode(e, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateLookupStage validates a $lookup join stage: a safe 'from'
// collection, a valid 'as' field, and either an equality join
// (localField/foreignField) or a recursively validated sub-pipeline with
// optional 'let' bindings.
func validateLookupStage(stage query.Node, depth int) error {
	if stage.Kind() != query.Object {
		return reject(InvalidStructure, "$lookup stage must be an object, got %s", stage.Kind())
	}

	from, ok := stage.Lookup("from")
	if !ok {
		return reject(InvalidStructure, "$lookup stage must have a 'from' field")
	}
	if from.Kind() != query.String {
		return reject(InvalidStructure, "$lookup 'from' must be a string")
	}
	if err := ValidateCollectionName(from.Str()); err != nil {
		return err
	}
	// Checked by ValidateCollectionName already; restated for intent.
	if strings.HasPrefix(from.Str(), "system.") {
		return reject(InvalidName, "$lookup cannot reference the reserved system. namespace")
	}

	as, ok := stage.Lookup("as")
	if !ok {
		return reject(InvalidStructure, "$lookup stage must have an 'as' field")
	}
	if as.Kind() != query.String || as.Str() == "" {
		return reject(InvalidStructure, "$lookup 'as' must be a non-empty string")
	}
	if err := ValidateFieldName(as.Str()); err != nil {
		return err
	}

	local, hasLocal := stage.Lookup("localField")
	foreign, hasForeign := stage.Lookup("foreignField")
	pipeline, hasPipeline := stage.Lookup("pipeline")

	switch {
	case hasLocal || hasForeign:
		if hasLocal {
			if local.Kind() != query.String {
				return reject(InvalidStructure, "$lookup 'localField' must be a string")
			}
			if err := ValidateFieldName(local.Str()); err != nil {
				return err
			}
		}
		if hasForeign {
			if foreign.Kind() != query.String {
				return reject(InvalidStructure, "$lookup 'foreignField' must be a string")
			}
			if err := ValidateFieldName(foreign.Str()); err != nil {
				return err
			}
		}
	case hasPipeline:
		if err := validatePipeline(pipeline, depth+1); err != nil {
			return err
		}
		if let, hasLet := stage.Lookup("let"); hasLet {
			if let.Kind() != query.Object {
				return reject(InvalidStructure, "$lookup 'let' must be an object")
			}
			for _, v := range let.Members() {
				if v.Key == "" {
					return reject(InvalidStructure, "$lookup 'let' variable names must be non-empty")
				}
				// Values are opaque expressions; not validated further.
			}
		}
	default:
		return reject(MissingJoinSpec, "$lookup must have either localField/foreignField or pipeline")
	}
	return nil
}

// ValidateSortSpecification validates an object mapping field names to sort
// directions. Directions must be 1 or -1; float literals with those exact
// values (a common LLM artifact) are accepted.
func ValidateSortSpecification(spec query.Node) error {
	if spec.Kind() != query.Object {
		return reject(InvalidStructure, "sort specification must be an object, got %s", spec.Kind())
	}
	for _, m := range spec.Members() {
		if err := ValidateFieldName(m.Key); err != nil {
			return err
		}
		if v, ok := integralValue(m.Value); !ok || (v != 1 && v != -1) {
			return reject(InvalidValue, "sort direction for %q must be 1 or -1", m.Key)
		}
	}
	return nil
}

// ValidateProjection validates an object mapping field names to inclusion
// flags. Flags must be one of 0, 1, true, false.
func ValidateProjection(spec query.Node) error {
	if spec.Kind() != query.Object {
		return reject(InvalidStructure, "projection must be an object, got %s", spec.Kind())
	}
	for _, m := range spec.Members() {
		if err := ValidateFieldName(m.Key); err != nil {
			return err
		}
		if !isProjectionFlag(m.Value) {
			return reject(InvalidValue, "projection value for %q must be 0, 1, true, or false", m.Key)
		}
	}
	return nil
}

func isProjectionFlag(n query.Node) bool {
	if n.Kind() == query.Bool {
		return true
	}
	v, ok := integralValue(n)
	return ok && (v == 0 || v == 1)
}

// integralValue returns the value of a Number node that holds a whole
// number, whether written as an integer or a float literal.
func integralValue(n query.Node) (int64, bool) {
	if v, ok := n.Int64(); ok {
		return v, true
	}
	f, ok := n.Float64()
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
