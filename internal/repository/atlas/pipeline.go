package atlas

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// vectorPipeline builds the $vectorSearch stage. numCandidates widens the ANN
// exploration and limit caps the returned chunks.
func vectorPipeline(index string, vector []float32, numCandidates, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: FieldEmbedding},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: max(numCandidates, limit)},
			{Key: "limit", Value: limit},
		}}},
		{{Key: "$project", Value: resultProjection}},
	}
}

// keywordPipeline builds the Atlas Search text stage. Terms are OR-ed by the text operator.
func keywordPipeline(index string, keywords []string, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$search", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "text", Value: bson.D{
				{Key: "query", Value: strings.Join(keywords, " ")},
				{Key: "path", Value: FieldContent},
			}},
		}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: resultProjection}},
	}
}
