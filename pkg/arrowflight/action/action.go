// Package action implements the built-in doAction handlers: status,
// cypherRead, gdsNodeProperties, gdsRelProperties, and gds.write.nodes,
// per spec.md §4.8.
package action

import (
	"context"
	"encoding/json"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/job"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/neo4j"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/vector"
)

// Names of the built-in actions, used as the doAction type string.
const (
	Status            = "status"
	CypherRead        = "cypherRead"
	GDSNodeProperties = "gdsNodeProperties"
	GDSRelProperties  = "gdsRelProperties"
	GDSWriteNodes     = "gds.write.nodes"
)

// CypherReadRequest is the JSON body doAction expects for CypherRead.
type CypherReadRequest struct {
	Cypher string                 `json:"cypher"`
	Params map[string]interface{} `json:"params"`
}

// GDSPropertiesRequest is the JSON body for gdsNodeProperties/gdsRelProperties.
type GDSPropertiesRequest struct {
	Database   string   `json:"database"`
	Properties []string `json:"properties"`
	Labels     []string `json:"labels,omitempty"`
	RelTypes   []string `json:"relTypes,omitempty"`
}

// WriteNodesRequest is the JSON body for gds.write.nodes.
type WriteNodesRequest struct {
	Database string `json:"database"`
	Label    string `json:"label"`
}

// Handler registers built-in actions against a Driver/GraphSink pair and
// dispatches doAction calls to them, matching spec.md §4.8's ActionHandler
// contract.
type Handler struct {
	driver neo4j.Driver
	sink   neo4j.GraphSink
}

// NewHandler creates a Handler wired to driver for reads and sink for
// writes. Either may be nil if the deployment only serves one direction.
func NewHandler(driver neo4j.Driver, sink neo4j.GraphSink) *Handler {
	return &Handler{driver: driver, sink: sink}
}

// Actions lists the action type strings this handler serves, for
// listActions.
func (h *Handler) Actions() []string {
	return []string{Status, CypherRead, GDSNodeProperties, GDSRelProperties, GDSWriteNodes}
}

// CreateReadJob dispatches a cypherRead/gdsNodeProperties/gdsRelProperties
// doAction body into a runnable read job. The job has not yet produced a
// row or inferred a schema; callers must call Schema() (which pulls the
// first row) before Consume.
func (h *Handler) CreateReadJob(ctx context.Context, actionType string, body []byte) (job.ReadJob, error) {
	if h.driver == nil {
		return nil, flighterrors.InvalidArgument("action: no read driver configured")
	}
	switch actionType {
	case CypherRead:
		var req CypherReadRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, flighterrors.InvalidArgument("action: malformed cypherRead body: %v", err)
		}
		stream, err := h.driver.Run(ctx, req.Cypher, req.Params)
		if err != nil {
			return nil, flighterrors.Wrap(err, flighterrors.ErrInternal, "action: cypherRead run")
		}
		return newCypherJob(stream), nil
	case GDSNodeProperties, GDSRelProperties:
		var req GDSPropertiesRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, flighterrors.InvalidArgument("action: malformed %s body: %v", actionType, err)
		}
		cypher, params := gdsProjectionQuery(actionType, req)
		stream, err := h.driver.Run(ctx, cypher, params)
		if err != nil {
			return nil, flighterrors.Wrap(err, flighterrors.ErrInternal, "action: %s run", actionType)
		}
		return newCypherJob(stream), nil
	default:
		return nil, flighterrors.InvalidArgument("action: unknown read action %q", actionType)
	}
}

// CreateWriteJob dispatches a gds.write.nodes doAction body into a write
// job accepting a schema and a completion-reporting Commit call.
func (h *Handler) CreateWriteJob(ctx context.Context, actionType string, body []byte, schema *arrow.Schema, batchSize int) (*WriteJob, error) {
	if h.sink == nil {
		return nil, flighterrors.InvalidArgument("action: no write sink configured")
	}
	if actionType != GDSWriteNodes {
		return nil, flighterrors.InvalidArgument("action: unknown write action %q", actionType)
	}
	var req WriteNodesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, flighterrors.InvalidArgument("action: malformed gds.write.nodes body: %v", err)
	}
	return newWriteJob(h.sink, req.Label, schema, batchSize), nil
}

func gdsProjectionQuery(actionType string, req GDSPropertiesRequest) (string, map[string]interface{}) {
	params := map[string]interface{}{"properties": req.Properties}
	if actionType == GDSNodeProperties {
		return "MATCH (n) WHERE size($labels) = 0 OR any(l IN labels(n) WHERE l IN $labels) " +
			"RETURN id(n) AS nodeId, [p IN $properties | n[p]] AS values", mergeParam(params, "labels", req.Labels)
	}
	return "MATCH ()-[r]->() WHERE size($relTypes) = 0 OR type(r) IN $relTypes " +
		"RETURN id(r) AS relId, [p IN $properties | r[p]] AS values", mergeParam(params, "relTypes", req.RelTypes)
}

func mergeParam(params map[string]interface{}, key string, v []string) map[string]interface{} {
	params[key] = v
	return params
}

// InferSchema builds a wire schema from the field names/kinds observed in
// the first converted row, per spec.md §4.8.
func InferSchema(fields []neo4j.FieldSpec, first rowsource.Row) (*arrow.Schema, error) {
	wireFields := make([]arrow.Field, len(fields))
	for i, f := range fields {
		v, err := first.GetByName(f.Name)
		if err != nil {
			return nil, err
		}
		wf, err := vector.FieldFor(f.Name, v, true)
		if err != nil {
			return nil, err
		}
		wireFields[i] = wf
	}
	return arrow.NewSchema(wireFields, nil), nil
}
