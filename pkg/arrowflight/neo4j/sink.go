package neo4j

import (
	"context"
	"fmt"

	boltdriver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/colstore"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// BoltSink implements GraphSink over the same Bolt connection pool a
// BoltDriver uses, batching writes via UNWIND per commitBatchSize rows.
type BoltSink struct {
	driver          boltdriver.DriverWithContext
	database        string
	commitBatchSize int
}

// NewBoltSink wraps driver for the write path, committing commitBatchSize
// rows per transaction function execution.
func NewBoltSink(driver boltdriver.DriverWithContext, database string, commitBatchSize int) *BoltSink {
	if commitBatchSize <= 0 {
		commitBatchSize = 1000
	}
	return &BoltSink{driver: driver, database: database, commitBatchSize: commitBatchSize}
}

func (b *BoltSink) WriteNodes(ctx context.Context, label string, store *colstore.Store) (int64, error) {
	return b.writeRows(ctx, store, fmt.Sprintf("UNWIND $rows AS row CREATE (n:%s) SET n = row", quoteLabel(label)))
}

func (b *BoltSink) WriteRelationships(ctx context.Context, relType string, store *colstore.Store) (int64, error) {
	return b.writeRows(ctx, store,
		fmt.Sprintf("UNWIND $rows AS row MATCH (a) WHERE id(a) = row.source MATCH (c) WHERE id(c) = row.target "+
			"CREATE (a)-[r:%s]->(c) SET r = row.properties", quoteLabel(relType)))
}

func (b *BoltSink) writeRows(ctx context.Context, store *colstore.Store, cypher string) (int64, error) {
	session := b.driver.NewSession(ctx, boltdriver.SessionConfig{DatabaseName: b.database})
	defer session.Close(ctx)

	total := store.RowCount()
	names := store.FieldNames()
	written := int64(0)

	for start := 0; start < total; start += b.commitBatchSize {
		end := start + b.commitBatchSize
		if end > total {
			end = total
		}
		rows := make([]map[string]interface{}, 0, end-start)
		for i := start; i < end; i++ {
			row := make(map[string]interface{}, len(names))
			for _, name := range names {
				v, err := store.GetByIndex(name, i)
				if err != nil {
					return written, err
				}
				row[name] = toDriverValue(v)
			}
			rows = append(rows, row)
		}
		_, err := session.ExecuteWrite(ctx, func(tx boltdriver.ManagedTransaction) (interface{}, error) {
			return tx.Run(ctx, cypher, map[string]interface{}{"rows": rows})
		})
		if err != nil {
			return written, flighterrors.Wrap(err, flighterrors.ErrInternal, "neo4j: commit write batch")
		}
		written += int64(len(rows))
	}
	return written, nil
}

func quoteLabel(label string) string {
	return "`" + label + "`"
}

func toDriverValue(v rowsource.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case rowsource.KindInt32:
		n, _ := v.AsInt32()
		return int64(n)
	case rowsource.KindInt64:
		n, _ := v.AsInt64()
		return n
	case rowsource.KindFloat32:
		f, _ := v.AsFloat32()
		return float64(f)
	case rowsource.KindFloat64:
		f, _ := v.AsFloat64()
		return f
	case rowsource.KindString:
		s, _ := v.AsString()
		return s
	case rowsource.KindDoubleArray:
		arr, _ := v.AsDoubleArray()
		return arr
	case rowsource.KindList:
		vals, _ := v.AsList()
		out := make([]float64, len(vals))
		for i, e := range vals {
			out[i], _ = e.AsFloat64()
		}
		return out
	default:
		return nil
	}
}
