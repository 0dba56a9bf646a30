/*
Package registry supplies the candidate-tool universe for recommendations.

The registry holds the static tool catalog and answers two questions: what
tools exist (optionally narrowed by a free-text usage context, via a Bleve
full-text index), and what declared metadata a tool has (category,
complexity, supported contexts and intents) for seeding content features.
*/
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

// searchLimit caps how many candidates a context query can return.
const searchLimit = 100

// Tool is one catalog entry.
type Tool struct {
	// ID is the stable tool identifier, e.g. "run_workflow".
	ID string `json:"id"`

	// Name is the human-readable name.
	Name string `json:"name"`

	// Description explains what the tool does.
	Description string `json:"description"`

	// Category is the declared category, empty if unknown.
	Category string `json:"category,omitempty"`

	// Complexity is "simple", "moderate" or "complex", empty if unknown.
	Complexity string `json:"complexity,omitempty"`

	// Contexts lists usage contexts the tool supports.
	Contexts []string `json:"contexts,omitempty"`

	// Intents lists intents the tool serves.
	Intents []string `json:"intents,omitempty"`

	// ParameterCount is the number of input parameters, 0 if unknown.
	ParameterCount int `json:"parameterCount,omitempty"`
}

// Registry answers candidate-tool lookups.
type Registry interface {
	// ListAvailableTools returns candidate tool IDs for a usage context.
	// An empty context returns the full catalog.
	ListAvailableTools(ctx context.Context, usageContext string) ([]string, error)
}

// MetadataProvider supplies declared tool metadata when available.
type MetadataProvider interface {
	// ToolMetadata returns the catalog entry for a tool, if registered.
	ToolMetadata(toolID string) (Tool, bool)
}

// BleveRegistry implements Registry and MetadataProvider over an
// in-memory Bleve index.
type BleveRegistry struct {
	mu         sync.RWMutex
	bleveIndex bleve.Index
	tools      map[string]Tool
	order      []string // insertion order, for deterministic full listings
	logger     *zap.Logger
}

// NewBleveRegistry creates an empty registry with an in-memory index.
func NewBleveRegistry(logger *zap.Logger) (*BleveRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &BleveRegistry{
		bleveIndex: index,
		tools:      make(map[string]Tool),
		logger:     logger,
	}, nil
}

// buildIndexMapping creates the Bleve index mapping for tool documents.
func buildIndexMapping() mapping.IndexMapping {
	toolMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	toolMapping.AddFieldMappingsAt("name", nameFieldMapping)

	descFieldMapping := bleve.NewTextFieldMapping()
	toolMapping.AddFieldMappingsAt("description", descFieldMapping)

	categoryFieldMapping := bleve.NewTextFieldMapping()
	toolMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", toolMapping)

	return indexMapping
}

// RegisterTools adds tools to the catalog and index. Re-registering a
// tool replaces its metadata but keeps its original position.
func (r *BleveRegistry) RegisterTools(tools []Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := r.bleveIndex.NewBatch()

	for _, tool := range tools {
		if tool.ID == "" {
			continue
		}

		doc := map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"category":    tool.Category,
		}
		if err := batch.Index(tool.ID, doc); err != nil {
			r.logger.Warn("failed to index tool", zap.String("tool", tool.ID), zap.Error(err))
			continue
		}

		if _, exists := r.tools[tool.ID]; !exists {
			r.order = append(r.order, tool.ID)
		}
		r.tools[tool.ID] = tool
	}

	if err := r.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index tools: %w", err)
	}

	return nil
}

// ListAvailableTools returns candidate tool IDs. With an empty usage
// context the full catalog is returned in registration order. A non-empty
// context runs a match query and returns hits in score order; when the
// query matches nothing, the full catalog is returned so a narrow query
// never empties the candidate universe.
func (r *BleveRegistry) ListAvailableTools(ctx context.Context, usageContext string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if usageContext == "" {
		return append([]string(nil), r.order...), nil
	}

	searchRequest := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(usageContext), searchLimit, 0, false)
	results, err := r.bleveIndex.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	if len(results.Hits) == 0 {
		return append([]string(nil), r.order...), nil
	}

	ids := make([]string, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// ToolMetadata returns the catalog entry for a tool, if registered.
func (r *BleveRegistry) ToolMetadata(toolID string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[toolID]
	return tool, ok
}

// Count returns the number of registered tools.
func (r *BleveRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Close releases index resources.
func (r *BleveRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bleveIndex != nil {
		return r.bleveIndex.Close()
	}
	return nil
}
