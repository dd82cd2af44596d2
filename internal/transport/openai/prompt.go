package openai

import (
	"fmt"
	"strings"

	"github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
)

const systemPrompt = "You are a MongoDB expert. Convert natural language to MongoDB queries. " +
	"Always respond with valid JSON."

// buildPrompt renders the user message: schema description, the question, the
// required response shape with worked examples, and the operator allow-list
// the model may draw from.
func buildPrompt(question string, snap schema.Snapshot, rels []inference.Relationship) string {
	var b strings.Builder

	b.WriteString("Given the following MongoDB collections:\n\n")
	b.WriteString(formatSchema(snap, rels))
	fmt.Fprintf(&b, "Convert this natural language query to a MongoDB query: %q\n\n", question)

	b.WriteString(`You must respond with a valid JSON object in this exact format:
{
    "query_type": "find" or "aggregate",
    "collection": "collection_name",
    "query": {} for find queries OR [] for aggregation pipelines,
    "sort": {},
    "limit": number
}

For simple queries, use "find" with a filter object.
For complex queries (grouping, counting, aggregations), use "aggregate" with a pipeline array.

Examples:

Simple query: "Show all products"
{
    "query_type": "find",
    "collection": "products",
    "query": {},
    "limit": 100
}

Filter query: "Find products with price greater than 50"
{
    "query_type": "find",
    "collection": "products",
    "query": {"price": {"$gt": 50}},
    "limit": 100
}

Aggregation: "Count users by country"
{
    "query_type": "aggregate",
    "collection": "users",
    "query": [
        {"$group": {"_id": "$country", "count": {"$sum": 1}}}
    ]
}

Cross-collection query: "Show me users who can afford products over $500"
{
    "query_type": "aggregate",
    "collection": "users",
    "query": [
        {"$match": {"money": {"$gte": 500}}},
        {"$lookup": {
            "from": "products",
            "let": {"user_money": "$money"},
            "pipeline": [
                {"$match": {"$expr": {"$lte": ["$price", "$$user_money"]}}},
                {"$match": {"price": {"$gte": 500}}}
            ],
            "as": "affordable_products"
        }},
        {"$match": {"affordable_products": {"$ne": []}}}
    ]
}

Cross-collection query: "Find products in cities where users live"
{
    "query_type": "aggregate",
    "collection": "products",
    "query": [
        {"$lookup": {
            "from": "users",
            "localField": "location",
            "foreignField": "city",
            "as": "local_users"
        }},
        {"$match": {"local_users": {"$ne": []}}}
    ]
}

MongoDB operators available:
- Comparison: $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin
- Logical: $and, $or, $not, $nor
- Aggregation stages: $match, $group, $sort, $limit, $project, $count, $lookup
- Aggregation operators: $sum, $avg, $min, $max, $count
- For cross-collection queries: Use $lookup stage in aggregation pipeline

IMPORTANT: When a query requires data from multiple collections, use $lookup in an aggregation pipeline.
Check the "Relationships between collections" section to find valid joins.
Use query_type "aggregate" for cross-collection queries.

Return ONLY the JSON object, no explanations.
`)

	return b.String()
}

// formatSchema renders each collection with its field types and example
// values, followed by the inferred relationships. The _id field is omitted;
// it never helps the model and invites queries on internal identifiers.
func formatSchema(snap schema.Snapshot, rels []inference.Relationship) string {
	var b strings.Builder

	for _, col := range snap.Collections() {
		fmt.Fprintf(&b, "Collection: %s\n", col.Name)
		fmt.Fprintf(&b, "Document count: %d\n", col.DocumentCount)
		b.WriteString("Fields:\n")
		for _, f := range col.Fields {
			if f.Name == "_id" {
				continue
			}
			fmt.Fprintf(&b, "  - %s (%s) - example: %v\n", f.Name, f.Type, f.Sample)
		}
		b.WriteString("\n")
	}

	if len(rels) > 0 {
		b.WriteString("Relationships between collections:\n")
		for _, r := range rels {
			fmt.Fprintf(&b, "  - %s.%s → %s.%s (confidence: %.2f, type: %s)\n",
				r.SourceCollection, r.SourceField,
				r.TargetCollection, r.TargetField,
				r.Confidence, r.Type)
		}
		b.WriteString("\n")
	}

	return b.String()
}
