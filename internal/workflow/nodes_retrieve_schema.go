package workflow

import (
	"context"

	"github.com/logtrail/logtrail/internal/store"
)

const schemaTableName = "logs"

// retrieveSchemaNode consults the schema repository and inserts its
// output verbatim into the SQL-generation prompt.
func retrieveSchemaNode(ctx context.Context, schemaRepo *store.SchemaRepository, state *AgentState) error {
	schemaInfo, err := schemaRepo.GetTableSchema(ctx, schemaTableName)
	if err != nil {
		state.ErrorMessage = "스키마 조회 실패: " + err.Error()
		state.emit("node_complete", "retrieve_schema", map[string]any{
			"error": err.Error(),
		})
		return nil
	}

	sampleData, err := schemaRepo.GetSampleData(ctx)
	if err != nil {
		state.ErrorMessage = "스키마 조회 실패: " + err.Error()
		state.emit("node_complete", "retrieve_schema", map[string]any{
			"error": err.Error(),
		})
		return nil
	}

	state.SchemaInfo = schemaInfo
	state.SampleData = sampleData
	state.emit("node_complete", "retrieve_schema", map[string]any{
		"schema_retrieved": true,
		"sample_count":      10,
	})
	return nil
}
